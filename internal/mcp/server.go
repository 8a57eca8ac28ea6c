// Package mcp serves the query/join layer over stdio JSON-RPC for agent
// clients. One request per line in, one response per line out; notifications
// are consumed without a reply.
package mcp

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"codedup/internal/annotations"
	"codedup/internal/query"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Server struct {
	engine     *query.Engine
	ann        *annotations.Store
	maxTextLen int
}

func NewServer(engine *query.Engine, ann *annotations.Store, maxTextLen int) *Server {
	if maxTextLen <= 0 {
		maxTextLen = query.DefaultMaxTextLen
	}
	return &Server{engine: engine, ann: ann, maxTextLen: maxTextLen}
}

// Run reads requests from stdin until EOF.
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

func (s *Server) Serve(in io.Reader, out io.Writer) error {
	// Chunk text payloads can be long lines.
	reader := bufio.NewReaderSize(in, 16*1024*1024)
	writer := bufio.NewWriter(out)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeError(writer, nil, -32700, "Parse error")
			continue
		}

		s.handleRequest(writer, &req)
	}
}

func (s *Server) handleRequest(writer *bufio.Writer, req *JSONRPCRequest) {
	// Notifications carry no id and get no response.
	if strings.HasPrefix(req.Method, "notifications/") {
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(writer, req)
	case "ping":
		s.writeResponse(writer, req.ID, map[string]interface{}{})
	case "tools/list":
		s.handleToolsList(writer, req)
	case "tools/call":
		s.handleToolsCall(writer, req)
	default:
		s.writeError(writer, req.ID, -32601, "Method not found")
	}
}

func (s *Server) handleInitialize(writer *bufio.Writer, req *JSONRPCRequest) {
	result := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"serverInfo": map[string]string{
			"name":    "codedup-mcp",
			"version": "1.0.0",
		},
		"capabilities": map[string]interface{}{
			"tools": map[string]bool{},
		},
	}
	s.writeResponse(writer, req.ID, result)
}

func (s *Server) handleToolsList(writer *bufio.Writer, req *JSONRPCRequest) {
	s.writeResponse(writer, req.ID, map[string]interface{}{"tools": toolSchemas()})
}

func (s *Server) handleToolsCall(writer *bufio.Writer, req *JSONRPCRequest) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(writer, req.ID, -32602, "Invalid params")
		return
	}
	if params.Arguments == nil {
		params.Arguments = json.RawMessage("{}")
	}

	handler, ok := s.toolHandler(params.Name)
	if !ok {
		s.writeError(writer, req.ID, -32602, "Unknown tool")
		return
	}

	result, err := handler(params.Arguments)
	if err != nil {
		s.writeError(writer, req.ID, -32603, err.Error())
		return
	}

	s.writeResponse(writer, req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": formatResult(result),
			},
		},
	})
}

func (s *Server) writeResponse(writer *bufio.Writer, id interface{}, result interface{}) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	data, _ := json.Marshal(resp)
	writer.Write(data)
	writer.WriteByte('\n')
	writer.Flush()
}

func (s *Server) writeError(writer *bufio.Writer, id interface{}, code int, message string) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
		},
	}
	data, _ := json.Marshal(resp)
	writer.Write(data)
	writer.WriteByte('\n')
	writer.Flush()
}

func formatResult(result interface{}) string {
	data, _ := json.MarshalIndent(result, "", "  ")
	return string(data)
}
