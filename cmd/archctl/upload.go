package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newUploadCMD(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload IMAGE",
		Short: "Upload a JPEG, PNG or WebP image and print its image reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return emit(cmd, a.client.UploadImage(cmd.Context(), filepath.Base(args[0]), f))
		},
	}
}
