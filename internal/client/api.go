package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	"github.com/arjenou/5000React/internal/projects"
	"github.com/arjenou/5000React/internal/users"
)

type HealthStatus struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

type LoginData struct {
	Token string          `json:"token"`
	User  users.AdminUser `json:"user"`
}

type VerifyData struct {
	User users.AdminUser `json:"user"`
}

// Empty is the payload of calls that answer with a message only.
type Empty struct{}

// ListParams are the list query parameters. Zero values are omitted; Status
// is only honoured by the admin list.
type ListParams struct {
	Page     int
	Limit    int
	Category string
	Search   string
	Status   string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Category != "" {
		v.Set("category", p.Category)
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Status != "" {
		v.Set("status", p.Status)
	}
	return v
}

func (c *Client) Health(ctx context.Context) Result[HealthStatus] {
	return Call[HealthStatus](ctx, c, Request{Path: "/health", Unwrapped: true})
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, username, password string) Result[LoginData] {
	res := Call[LoginData](ctx, c, Request{
		Method: http.MethodPost,
		Path:   "/api/admin/login",
		Body:   map[string]string{"username": username, "password": password},
	})
	if res.Success {
		if err := c.session.Set(res.Data.Token); err != nil {
			c.log.Warn("client session: persist failed", "error", err.Error())
		}
	}
	return res
}

// Verify checks the session token. A token the server rejects is cleared.
func (c *Client) Verify(ctx context.Context) Result[VerifyData] {
	res := Call[VerifyData](ctx, c, Request{Path: "/api/admin/verify"})
	if !res.Success && res.Kind == KindHTTP {
		if err := c.session.Clear(); err != nil {
			c.log.Warn("client session: clear failed", "error", err.Error())
		}
	}
	return res
}

// Logout forgets the token and every cached response.
func (c *Client) Logout() error {
	c.cache.Flush()
	return c.session.Clear()
}

func (c *Client) ListProjects(ctx context.Context, p ListParams) Result[[]projects.Project] {
	p.Status = ""
	return Call[[]projects.Project](ctx, c, Request{Path: "/api/projects", Query: p.values(), Cacheable: true})
}

func (c *Client) GetProject(ctx context.Context, slug string) Result[projects.Project] {
	return Call[projects.Project](ctx, c, Request{Path: "/api/projects/" + url.PathEscape(slug), Cacheable: true})
}

func (c *Client) AdminListProjects(ctx context.Context, p ListParams) Result[[]projects.Project] {
	return Call[[]projects.Project](ctx, c, Request{Path: "/api/admin/projects", Query: p.values()})
}

func (c *Client) AdminGetProject(ctx context.Context, id string) Result[projects.Project] {
	return Call[projects.Project](ctx, c, Request{Path: "/api/admin/projects/" + url.PathEscape(id)})
}

func (c *Client) CreateProject(ctx context.Context, req projects.CreateRequest) Result[projects.Project] {
	return Call[projects.Project](ctx, c, Request{Method: http.MethodPost, Path: "/api/admin/projects", Body: req})
}

func (c *Client) UpdateProject(ctx context.Context, id string, req projects.UpdateRequest) Result[projects.Project] {
	return Call[projects.Project](ctx, c, Request{
		Method: http.MethodPut,
		Path:   "/api/admin/projects/" + url.PathEscape(id),
		Body:   req,
	})
}

func (c *Client) DeleteProject(ctx context.Context, id string) Result[Empty] {
	return Call[Empty](ctx, c, Request{Method: http.MethodDelete, Path: "/api/admin/projects/" + url.PathEscape(id)})
}

// UploadImage sends one image as multipart field "file". The part's content
// type is sniffed from the bytes.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) Result[projects.ImageRef] {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result[projects.ImageRef]{Kind: KindDecode, Error: "read image: " + err.Error()}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimetype.Detect(data).String())
	part, err := mw.CreatePart(header)
	if err == nil {
		_, err = part.Write(data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return Result[projects.ImageRef]{Kind: KindDecode, Error: "encode upload: " + err.Error()}
	}

	return Call[projects.ImageRef](ctx, c, Request{
		Method:      http.MethodPost,
		Path:        "/api/admin/upload",
		RawBody:     buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	})
}
