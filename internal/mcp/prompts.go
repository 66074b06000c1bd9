package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("draft_document",
		mcp.WithPromptDescription("Guide through drafting a structured document block by block"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Topic or title of the document"),
			mcp.RequiredArgument(),
		),
	), s.handleDraftPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("comparison_table",
		mcp.WithPromptDescription("Build a comparison table inside the active document"),
		mcp.WithArgument("subjects",
			mcp.ArgumentDescription("Comma-separated items to compare"),
			mcp.RequiredArgument(),
		),
	), s.handleComparisonPrompt)
}

func (s *Server) handleDraftPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Draft a document about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Draft a document about "%s". Follow these steps:

1. create_document with the title "%s" (it becomes the active document)
2. Write the introduction into the first paragraph with input_markup (use <b>, <i>, <u> sparingly)
3. Press Enter at the end of a paragraph (press_key) to start the next one
4. Use insert_block with kind "unorderedList" or "orderedList" for key points; press Enter inside an item to add the next item
5. Check the result with list_blocks, then save_document

Keep paragraphs short. Do not leave empty trailing paragraphs.`, topic, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleComparisonPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	subjects := req.Params.Arguments["subjects"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Compare: %s", subjects),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Add a comparison of %s to the active document. Follow these steps:

1. insert_block with kind "table" at the end of the document
2. Use table_resize (addRow / addColumn) until there is one column per subject plus a label column
3. Fill the header row and each cell with input_markup, addressing cells by row and col
4. Add a paragraph after the table summarizing the comparison
5. save_document when done`, subjects),
				},
			},
		},
	}, nil
}
