package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/capgate/internal/providers/restclient"
	"github.com/GriffinCanCode/capgate/internal/shared/types"
)

// ServiceName is the name the handler is registered under
const ServiceName = "github"

const apiVersion = "2022-11-28"

// Config configures the API client
type Config struct {
	BaseURL string
	Token   string
}

// ReposArgs is the argument shape of listRepos
type ReposArgs struct {
	Owner   string `json:"owner,omitempty" jsonschema:"description=User or organisation; defaults to the authenticated user"`
	PerPage int    `json:"perPage,omitempty"`
}

// RepoArgs identifies a repository
type RepoArgs struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// IssuesArgs is the argument shape of listIssues
type IssuesArgs struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	State string `json:"state,omitempty" jsonschema:"enum=open,enum=closed,enum=all"`
}

// CreateIssueArgs is the argument shape of createIssue
type CreateIssueArgs struct {
	Owner  string   `json:"owner"`
	Repo   string   `json:"repo"`
	Title  string   `json:"title"`
	Body   string   `json:"body,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// FileArgs is the argument shape of getFile
type FileArgs struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Path  string `json:"path"`
	Ref   string `json:"ref,omitempty"`
}

// Handler serves the GitHub operations
type Handler struct {
	client *restclient.Client
	logger *zap.Logger
}

// New creates a handler
func New(cfg Config, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := restclient.DefaultConfig(ServiceName, cfg.BaseURL)
	rc.Token = cfg.Token
	rc.Logger = logger
	rc.Headers = map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": apiVersion,
	}

	client, err := restclient.New(rc)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps a configured client
func NewWithClient(client *restclient.Client, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: client, logger: logger.With(zap.String("service", ServiceName))}
}

// Capabilities lists the supported operations
func (h *Handler) Capabilities() []types.Capability {
	return []types.Capability{
		types.NewCapability[ReposArgs]("listRepos", "List repositories"),
		types.NewCapability[RepoArgs]("getRepo", "Get one repository"),
		types.NewCapability[IssuesArgs]("listIssues", "List repository issues"),
		types.NewCapability[CreateIssueArgs]("createIssue", "Open an issue"),
		types.NewCapability[FileArgs]("getFile", "Read a file from a repository"),
		types.Op("test", "Check API connectivity and rate limit"),
	}
}

// ValidateParams checks required arguments
func (h *Handler) ValidateParams(params types.Params) error {
	switch params.Operation {
	case "getRepo":
		return params.Require("owner", "repo")
	case "listIssues":
		if err := params.Require("owner", "repo"); err != nil {
			return err
		}
		switch params.String("state") {
		case "", "open", "closed", "all":
		default:
			return types.NewError(types.CodeInvalidParams, "state must be open, closed or all",
				map[string]any{"state": params.String("state")})
		}
	case "createIssue":
		return params.Require("owner", "repo", "title")
	case "getFile":
		return params.Require("owner", "repo", "path")
	}
	return nil
}

// Execute runs one operation
func (h *Handler) Execute(ctx context.Context, params types.Params) (*types.Result, error) {
	var (
		data any
		err  error
	)

	switch params.Operation {
	case "listRepos":
		path := "/user/repos"
		if owner := params.String("owner"); owner != "" {
			path = "/users/" + url.PathEscape(owner) + "/repos"
		}
		data, err = h.client.Get(ctx, path, map[string]string{
			"per_page": strconv.Itoa(params.Int("perPage", 30)),
		})
	case "getRepo":
		data, err = h.client.Get(ctx, repoPath(params), nil)
	case "listIssues":
		state := params.String("state")
		if state == "" {
			state = "open"
		}
		data, err = h.client.Get(ctx, repoPath(params)+"/issues", map[string]string{"state": state})
	case "createIssue":
		body := map[string]any{"title": params.String("title")}
		if b := params.String("body"); b != "" {
			body["body"] = b
		}
		if labels := params.Slice("labels"); len(labels) > 0 {
			body["labels"] = labels
		}
		data, err = h.client.Post(ctx, repoPath(params)+"/issues", body)
		if err == nil {
			h.logger.Info("Issue created",
				zap.String("repo", params.String("owner")+"/"+params.String("repo")))
		}
	case "getFile":
		data, err = h.getFile(ctx, params)
	case "test":
		data, err = h.client.Get(ctx, "/rate_limit", nil)
	default:
		return nil, types.Errorf(types.CodeOperationNotSupported, "unknown operation: %s", params.Operation)
	}

	if err != nil {
		return nil, err
	}
	return types.Success(data), nil
}

// Health probes the rate limit endpoint, which does not count against it
func (h *Handler) Health(ctx context.Context) error {
	return h.client.Ping(ctx, "/rate_limit")
}

// Shutdown releases idle connections
func (h *Handler) Shutdown(context.Context) error {
	h.client.Close()
	return nil
}

func (h *Handler) getFile(ctx context.Context, params types.Params) (any, error) {
	var query map[string]string
	if ref := params.String("ref"); ref != "" {
		query = map[string]string{"ref": ref}
	}

	raw, err := h.client.Get(ctx, repoPath(params)+"/contents/"+escapePath(params.String("path")), query)
	if err != nil {
		return nil, err
	}
	file, ok := raw.(map[string]any)
	if !ok {
		return nil, types.NewError(types.CodeInvalidParams,
			fmt.Sprintf("%s is a directory", params.String("path")),
			map[string]any{"path": params.String("path")})
	}

	if enc, _ := file["encoding"].(string); enc == "base64" {
		content, _ := file["content"].(string)
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", params.String("path"), err)
		}
		file["content"] = string(decoded)
		file["encoding"] = "utf-8"
	}
	return file, nil
}

func repoPath(params types.Params) string {
	return "/repos/" + url.PathEscape(params.String("owner")) + "/" + url.PathEscape(params.String("repo"))
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
