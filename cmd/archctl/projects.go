package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/arjenou/5000React/internal/client"
	"github.com/arjenou/5000React/internal/projects"
)

func newProjectsCMD(a *app) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "List, read and edit portfolio projects",
	}
	projectsCmd.AddCommand(
		newProjectsListCMD(a),
		newProjectsGetCMD(a),
		newProjectsCreateCMD(a),
		newProjectsUpdateCMD(a),
		newProjectsDeleteCMD(a),
	)
	return projectsCmd
}

func newProjectsListCMD(a *app) *cobra.Command {
	var (
		params client.ListParams
		admin  bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List projects (published only unless --admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if admin {
				return emit(cmd, a.client.AdminListProjects(cmd.Context(), params))
			}
			return emit(cmd, a.client.ListProjects(cmd.Context(), params))
		},
	}
	f := listCmd.Flags()
	f.IntVar(&params.Page, "page", 0, "page number")
	f.IntVar(&params.Limit, "limit", 0, "page size")
	f.StringVar(&params.Category, "category", "", "category filter")
	f.StringVar(&params.Search, "search", "", "search title, architect and location")
	f.StringVar(&params.Status, "status", "", "status filter (admin only): draft, published or all")
	f.BoolVar(&admin, "admin", false, "use the admin listing")
	return listCmd
}

func newProjectsGetCMD(a *app) *cobra.Command {
	var admin bool
	getCmd := &cobra.Command{
		Use:   "get SLUG|ID",
		Short: "Show one project: a published slug, or any id with --admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if admin {
				return emit(cmd, a.client.AdminGetProject(cmd.Context(), args[0]))
			}
			return emit(cmd, a.client.GetProject(cmd.Context(), args[0]))
		},
	}
	getCmd.Flags().BoolVar(&admin, "admin", false, "look up by id regardless of status")
	return getCmd
}

func newProjectsCreateCMD(a *app) *cobra.Command {
	var file string
	createCmd := &cobra.Command{
		Use:   "create -f project.json",
		Short: "Create a project from a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req projects.CreateRequest
			if err := readJSON(cmd, file, &req); err != nil {
				return err
			}
			return emit(cmd, a.client.CreateProject(cmd.Context(), req))
		},
	}
	createCmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file, - for stdin")
	return createCmd
}

func newProjectsUpdateCMD(a *app) *cobra.Command {
	var file string
	updateCmd := &cobra.Command{
		Use:   "update ID -f changes.json",
		Short: "Apply a partial update; only fields present in the document change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req projects.UpdateRequest
			if err := readJSON(cmd, file, &req); err != nil {
				return err
			}
			return emit(cmd, a.client.UpdateProject(cmd.Context(), args[0], req))
		},
	}
	updateCmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file, - for stdin")
	return updateCmd
}

func newProjectsDeleteCMD(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.client.DeleteProject(cmd.Context(), args[0])
			if !res.Success {
				return emit(cmd, res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func readJSON(cmd *cobra.Command, file string, v interface{}) error {
	var r io.Reader = cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", file, err)
	}
	return nil
}
