package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/formwork"
	"github.com/aretw0/formwork/internal/logging"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const schemasURI = "formwork://schemas"

// SchemaInfo describes a served definition and the rule types of each field.
type SchemaInfo struct {
	Name   string              `json:"name" jsonschema_description:"Definition name"`
	Fields map[string][]string `json:"fields" jsonschema_description:"Rule types per field, in evaluation order"`
}

// ListResponse is the output of list_schemas.
type ListResponse struct {
	Schemas []SchemaInfo `json:"schemas" jsonschema_description:"Served form definitions"`
}

// ValidateResponse is the output of validate_form.
type ValidateResponse struct {
	Schema  string            `json:"schema" jsonschema_description:"Definition the values were checked against"`
	Valid   bool              `json:"valid" jsonschema_description:"True when every field passed"`
	Errors  map[string]string `json:"errors,omitempty" jsonschema_description:"First failing message per field"`
	Unknown []string          `json:"unknown,omitempty" jsonschema_description:"Keys the definition does not declare"`
}

// Server exposes stateless form validation as an MCP server.
type Server struct {
	defs      map[string]*schema.Definition
	registry  *schema.Registry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(defs map[string]*schema.Definition, reg *schema.Registry, opts ...Option) *Server {
	s := &Server{
		defs:      defs,
		registry:  reg,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("formwork-mcp", strings.TrimSpace(formwork.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: list_schemas
	listTool := mcp.NewTool("list_schemas",
		mcp.WithDescription("List the form definitions served, with the rule types of every field."),
		mcp.WithOutputSchema[ListResponse](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleListSchemas))

	// TOOL: validate_form
	validateTool := mcp.NewTool("validate_form",
		mcp.WithDescription("Validate field values against a form definition as a submission would. Nothing is stored."),
		mcp.WithString("schema", mcp.Required(), mcp.Description("Definition name, see list_schemas")),
		mcp.WithString("values", mcp.Description("JSON object of field values (omitted fields keep their initial value)")),
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))
}

func (s *Server) listSchemas() ListResponse {
	resp := ListResponse{Schemas: make([]SchemaInfo, 0, len(s.defs))}
	for _, name := range sortedNames(s.defs) {
		def := s.defs[name]
		info := SchemaInfo{Name: name, Fields: make(map[string][]string, len(def.Fields))}
		for _, field := range def.FieldNames() {
			types := make([]string, 0, len(def.Fields[field].Rules))
			for _, spec := range def.Fields[field].Rules {
				types = append(types, spec.Type)
			}
			info.Fields[field] = types
		}
		resp.Schemas = append(resp.Schemas, info)
	}
	return resp
}

func (s *Server) handleListSchemas(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ListResponse, error) {
	return s.listSchemas(), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	name, _ := args["schema"].(string)
	def, ok := s.defs[name]
	if !ok {
		return ValidateResponse{}, fmt.Errorf("%w: %q", domain.ErrUnknownSchema, name)
	}

	values := domain.Values{}
	switch raw := args["values"].(type) {
	case nil:
	case string:
		if strings.TrimSpace(raw) != "" {
			if err := json.Unmarshal([]byte(raw), &values); err != nil {
				return ValidateResponse{}, fmt.Errorf("values must be a JSON object: %w", err)
			}
		}
	case map[string]interface{}:
		values = raw
	default:
		return ValidateResponse{}, fmt.Errorf("values must be a JSON object, got %T", raw)
	}

	rep, err := formwork.Check(ctx, def, s.registry, values, formwork.WithLogger(s.logger))
	if err != nil {
		return ValidateResponse{}, fmt.Errorf("validate failed: %w", err)
	}
	s.logger.Debug("MCP validate_form", "schema", name, "valid", rep.Valid)

	return ValidateResponse{
		Schema:  rep.Schema,
		Valid:   rep.Valid,
		Errors:  rep.Errors,
		Unknown: rep.Unknown,
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: formwork://schemas
	s.mcpServer.AddResource(mcp.NewResource(schemasURI, "Served Form Definitions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.listSchemas())
		if err != nil {
			return nil, fmt.Errorf("failed to encode schemas: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      schemasURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func sortedNames(defs map[string]*schema.Definition) []string {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
