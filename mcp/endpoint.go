package mcp

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/vector"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func errorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `RAGBlade stores documents in a vector database and retrieves the ones most relevant to a question.

Available tools:
- query_documents: Find the documents closest to a natural language query
- add_documents: Store new documents; documents already stored are skipped
- count_documents: Count the stored documents
- list_document_ids: List the ids of stored documents, optionally filtered by metadata

Use query_documents to ground answers in stored knowledge before replying.`

const (
	ToolQueryDocuments  = "query_documents"
	ToolAddDocuments    = "add_documents"
	ToolCountDocuments  = "count_documents"
	ToolListDocumentIDs = "list_document_ids"
)

func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolQueryDocuments,
			mcp.WithDescription("Return the content of the stored documents most similar to the query."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Natural language query"),
			),
			mcp.WithNumber("k",
				mcp.Description("Maximum number of documents to return"),
				mcp.Min(1),
			),
			mcp.WithObject("where",
				mcp.Description(`Metadata filter, e.g. {"source": "faq"} or {"year": {"$in": [2023, 2024]}}`),
			),
		),
		mcp.NewTool(ToolAddDocuments,
			mcp.WithDescription("Store documents. Documents without an id get one derived from their content."),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithArray("documents",
				mcp.Required(),
				mcp.Description("Documents to store"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":       map[string]any{"type": "string"},
						"content":  map[string]any{"type": "string"},
						"metadata": map[string]any{"type": "object"},
					},
					"required": []string{"content"},
				}),
			),
		),
		mcp.NewTool(ToolCountDocuments,
			mcp.WithDescription("Count the stored documents."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		mcp.NewTool(ToolListDocumentIDs,
			mcp.WithDescription("List the ids of stored documents."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithArray("ids",
				mcp.Description("Only return these ids when they are stored"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithObject("where",
				mcp.Description("Metadata filter"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of ids to return"),
			),
		),
	}
}

func InitializeEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "ragblade",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

type queryDocumentsArguments struct {
	Query string        `json:"query"`
	K     int           `json:"k"`
	Where vector.Filter `json:"where"`
}

type addDocumentsArguments struct {
	Documents []ragblade.Document `json:"documents"`
}

func CallToolEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		callToolReq := mcp.CallToolRequest{
			Request: mcp.Request{
				Method: string(req.Method),
			},
			Params: params,
		}

		var (
			result *mcp.CallToolResult
			err    error
		)

		switch params.Name {
		case ToolQueryDocuments:
			result, err = callQueryDocuments(ctx, svc, callToolReq)

		case ToolAddDocuments:
			result, err = callAddDocuments(ctx, svc, callToolReq)

		case ToolCountDocuments:
			result, err = callCountDocuments(ctx, svc)

		case ToolListDocumentIDs:
			result, err = callListDocumentIDs(ctx, svc, callToolReq)

		default:
			return errorResponse(req.ID, mcp.INVALID_PARAMS, "unknown tool: "+params.Name)
		}

		if err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

// The call* helpers return an error only for malformed arguments. Service
// failures are reported to the model as tool errors.

func callQueryDocuments(ctx context.Context, svc ragblade.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args queryDocumentsArguments
	if err := req.BindArguments(&args); err != nil {
		return nil, err
	}

	results, err := svc.Query(ctx, args.Query, args.K, args.Where)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	contents := make([]mcp.Content, len(results))
	for i, text := range results {
		contents[i] = mcp.NewTextContent(text)
	}

	return &mcp.CallToolResult{
		Content: contents,
	}, nil
}

func callAddDocuments(ctx context.Context, svc ragblade.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args addDocumentsArguments
	if err := req.BindArguments(&args); err != nil {
		return nil, err
	}

	ids, err := svc.AddDocuments(ctx, args.Documents)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(ids)
}

func callCountDocuments(ctx context.Context, svc ragblade.Service) (*mcp.CallToolResult, error) {
	n, err := svc.Count(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(strconv.Itoa(n)), nil
}

func callListDocumentIDs(ctx context.Context, svc ragblade.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var opts vector.GetOptions
	if err := req.BindArguments(&opts); err != nil {
		return nil, err
	}

	ids, err := svc.ListIDs(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(ids)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(bs)), nil
}
