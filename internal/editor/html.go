package editor

import (
	"fmt"
	"html"
	"strings"

	"blockmark/internal/blocks"
	"blockmark/internal/codec"
	"blockmark/internal/domain"
)

// RenderHTML writes doc as static HTML, one element per block. Images
// without a source and videos without a valid URL are omitted.
func RenderHTML(doc domain.Document) string {
	var parts []string
	for _, entry := range doc {
		if s := renderEntry(entry); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func renderEntry(entry domain.Entry) string {
	switch d := entry.Data.(type) {
	case domain.ParagraphData:
		return "<p>" + inline(d.Text) + "</p>"

	case domain.ListData:
		tag := "ul"
		if d.Ordered {
			tag = "ol"
		}
		var b strings.Builder
		b.WriteString("<" + tag + ">")
		for _, it := range d.Items {
			b.WriteString("<li>" + inline(it) + "</li>")
		}
		b.WriteString("</" + tag + ">")
		return b.String()

	case domain.TableData:
		var b strings.Builder
		b.WriteString("<table><tbody>")
		for r := 0; r < d.Rows; r++ {
			b.WriteString("<tr>")
			for c := 0; c < d.Columns; c++ {
				var segs []domain.TextSegment
				if i := d.Index(r, c); i < len(d.Cells) {
					segs = d.Cells[i].Text
				}
				b.WriteString("<td>" + inline(segs) + "</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")
		return b.String()

	case domain.ImageData:
		if d.Src == "" {
			return ""
		}
		var b strings.Builder
		fmt.Fprintf(&b, `<figure><img src="%s" alt="%s"`, attr(d.Src), attr(codec.Sanitize(d.Alt)))
		if d.Width != "" && d.Width != "auto" {
			fmt.Fprintf(&b, ` width="%s"`, attr(d.Width))
		}
		if d.Height != "" && d.Height != "auto" {
			fmt.Fprintf(&b, ` height="%s"`, attr(d.Height))
		}
		b.WriteString(">")
		if caption := strings.TrimSpace(codec.Sanitize(d.Caption)); caption != "" {
			b.WriteString("<figcaption>" + html.EscapeString(caption) + "</figcaption>")
		}
		b.WriteString("</figure>")
		return b.String()

	case domain.YouTubeData:
		id := blocks.ExtractVideoID(d.URL)
		if id == "" {
			return ""
		}
		return fmt.Sprintf(`<div class="youtube-embed"><iframe src="%s" frameborder="0" allowfullscreen></iframe></div>`,
			attr(blocks.EmbedURL(id)))
	}
	return ""
}

func inline(segs []domain.TextSegment) string {
	if domain.PlainText(segs) == "" {
		return codec.LineBreak
	}
	return codec.Render(segs)
}

func attr(s string) string {
	return html.EscapeString(s)
}
