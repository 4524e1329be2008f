package mcp

import (
	"context"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/mdsearch/internal/store"
)

const (
	documentURIPrefix   = "mdsearch://documents/"
	documentURITemplate = documentURIPrefix + "{id}"
	markdownMIMEType    = "text/markdown"
)

// DocumentURI returns the resource URI of a document.
func DocumentURI(id store.DocID) string {
	return documentURIPrefix + strconv.FormatInt(int64(id), 10)
}

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "document",
		Description: "The body of an indexed document, without its metadata block.",
		MIMEType:    markdownMIMEType,
		URITemplate: documentURITemplate,
	}, s.readDocument)
}

func (s *Server) readDocument(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, ok := parseDocumentURI(uri)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	content, err := s.backend.RenderableContent(ctx, id)
	if err != nil {
		if me := MapError(err, s.debug); me.Code == ErrCodeNotFound {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, MapError(err, s.debug)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: markdownMIMEType,
			Text:     content,
		}},
	}, nil
}

func parseDocumentURI(uri string) (store.DocID, bool) {
	rest, ok := strings.CutPrefix(uri, documentURIPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return store.DocID(n), true
}
