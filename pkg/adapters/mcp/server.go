// Package mcp exposes flow authoring tools over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/internal/validator"
	"github.com/aretw0/chatflow/pkg/chatbots"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultFlowURI is the resource holding the flow given to new chatbots.
const DefaultFlowURI = "chatflow://flows/default"

// SimulateArgs are the arguments of the simulate tool.
type SimulateArgs struct {
	Flow string `json:"flow"`
	// Inputs is a JSON array of user inputs. "#n" taps the n-th choice.
	Inputs string `json:"inputs,omitempty"`
}

// SimulatedTurn is one input and what the chatbot answered.
type SimulatedTurn struct {
	Input    string            `json:"input" jsonschema_description:"The user input"`
	Outcome  domain.Outcome    `json:"outcome" jsonschema_description:"How the turn ended"`
	Visited  []string          `json:"visited,omitempty" jsonschema_description:"Node IDs entered during the turn"`
	Messages []string          `json:"messages" jsonschema_description:"Outbound messages rendered as Markdown"`
	Choices  []chatflow.Choice `json:"choices,omitempty" jsonschema_description:"Options the user can tap next"`
}

// SimulateResponse is the result of the simulate tool.
type SimulateResponse struct {
	Turns         []SimulatedTurn `json:"turns"`
	CurrentNodeID string          `json:"current_node_id,omitempty" jsonschema_description:"Where the session rests"`
}

// FlowArgs carries a flow document.
type FlowArgs struct {
	Flow string `json:"flow"`
}

// ValidateResponse is the result of the validate_flow tool.
type ValidateResponse struct {
	Valid  bool              `json:"valid" jsonschema_description:"False when at least one error was found"`
	Issues []validator.Issue `json:"issues" jsonschema_description:"Lint findings"`
}

// AccountArgs selects an account.
type AccountArgs struct {
	AccountID string `json:"account_id"`
}

// ChatbotSummary describes a stored chatbot without its flow.
type ChatbotSummary struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Mode        domain.Mode `json:"mode"`
	TestTrigger string      `json:"test_trigger"`
	Nodes       int         `json:"nodes" jsonschema_description:"Number of nodes in the flow"`
}

// ListChatbotsResponse is the result of the list_chatbots tool.
type ListChatbotsResponse struct {
	Chatbots []ChatbotSummary `json:"chatbots"`
}

// Server exposes chatflow as an MCP server.
type Server struct {
	bots      *chatbots.Service
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithChatbots enables the tools that read stored chatbots.
func WithChatbots(svc *chatbots.Service) Option {
	return func(s *Server) {
		s.bots = svc
	}
}

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(opts ...Option) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("chatflow-mcp", strings.TrimSpace(chatflow.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "mcp")
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on Stdin/Stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("simulate",
		mcp.WithDescription("Run a flow in memory for one simulated user and return what the chatbot sends."),
		mcp.WithString("flow", mcp.Required(), mcp.Description("Flow graph JSON document ({nodes, edges})")),
		mcp.WithString("inputs", mcp.Description(`JSON array of user inputs, e.g. ["hi", "#1"]. "#n" taps the n-th option. Defaults to ["hi"].`)),
		mcp.WithOutputSchema[SimulateResponse](),
	), mcp.NewStructuredToolHandler(s.handleSimulate))

	s.mcpServer.AddTool(mcp.NewTool("validate_flow",
		mcp.WithDescription("Lint a flow graph: schema, start node, dangling edges, handles and limits."),
		mcp.WithString("flow", mcp.Required(), mcp.Description("Flow graph JSON document")),
		mcp.WithOutputSchema[ValidateResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	if s.bots == nil {
		return
	}
	s.mcpServer.AddTool(mcp.NewTool("list_chatbots",
		mcp.WithDescription("List the chatbots of an account with their mode and test trigger."),
		mcp.WithString("account_id", mcp.Required(), mcp.Description("Account ID")),
		mcp.WithOutputSchema[ListChatbotsResponse](),
	), mcp.NewStructuredToolHandler(s.handleListChatbots))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(DefaultFlowURI, "Default flow",
		mcp.WithResourceDescription("The flow given to newly created chatbots"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.MarshalIndent(domain.DefaultFlow(), "", "  ")
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      DefaultFlowURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) handleSimulate(ctx context.Context, _ mcp.CallToolRequest, args SimulateArgs) (SimulateResponse, error) {
	flow, err := chatflow.ParseFlow([]byte(args.Flow))
	if err != nil {
		return SimulateResponse{}, err
	}
	inputs := []string{"hi"}
	if strings.TrimSpace(args.Inputs) != "" {
		if err := json.Unmarshal([]byte(args.Inputs), &inputs); err != nil {
			return SimulateResponse{}, fmt.Errorf("inputs must be a JSON array of strings: %w", err)
		}
	}

	sim, err := chatflow.NewSimulator(flow, chatflow.WithLogger(s.logger))
	if err != nil {
		return SimulateResponse{}, err
	}

	resp := SimulateResponse{Turns: make([]SimulatedTurn, 0, len(inputs))}
	for _, in := range inputs {
		step, err := simulateInput(ctx, sim, in)
		if err != nil {
			return SimulateResponse{}, fmt.Errorf("input %q: %w", in, err)
		}
		turn := SimulatedTurn{
			Input:    in,
			Outcome:  step.Result.Outcome,
			Visited:  step.Result.Visited,
			Messages: make([]string, 0, len(step.Payloads)),
			Choices:  step.Choices,
		}
		n := 1
		for _, p := range step.Payloads {
			turn.Messages = append(turn.Messages, chatflow.FormatPayload(p, n))
			n += len(chatflow.ChoicesOf([]domain.Payload{p}))
		}
		resp.Turns = append(resp.Turns, turn)
	}

	if sess, err := sim.Session(ctx); err == nil {
		resp.CurrentNodeID = sess.CurrentNodeID
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return SimulateResponse{}, err
	}
	return resp, nil
}

func simulateInput(ctx context.Context, sim *chatflow.Simulator, in string) (chatflow.Step, error) {
	if rest, ok := strings.CutPrefix(in, "#"); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			return sim.Choose(ctx, n)
		}
	}
	return sim.Say(ctx, in)
}

func (s *Server) handleValidate(_ context.Context, _ mcp.CallToolRequest, args FlowArgs) (ValidateResponse, error) {
	_, report, err := validator.ValidateDocument([]byte(args.Flow))
	if err != nil {
		return ValidateResponse{}, err
	}
	issues := report.Issues
	if issues == nil {
		issues = []validator.Issue{}
	}
	return ValidateResponse{Valid: !report.HasErrors(), Issues: issues}, nil
}

func (s *Server) handleListChatbots(ctx context.Context, _ mcp.CallToolRequest, args AccountArgs) (ListChatbotsResponse, error) {
	bots, err := s.bots.ListByAccount(ctx, args.AccountID)
	if err != nil {
		return ListChatbotsResponse{}, fmt.Errorf("list failed: %w", err)
	}
	out := ListChatbotsResponse{Chatbots: make([]ChatbotSummary, 0, len(bots))}
	for _, b := range bots {
		out.Chatbots = append(out.Chatbots, ChatbotSummary{
			ID:          b.ID,
			Name:        b.Name,
			Mode:        b.Mode,
			TestTrigger: b.TestTrigger,
			Nodes:       len(b.Flow.Nodes),
		})
	}
	return out, nil
}
