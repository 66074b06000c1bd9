package blocks

import (
	"errors"
	"html"
	"regexp"
	"strings"
	"time"

	"blockmark/internal/domain"
	"blockmark/internal/surface"
)

func init() { RegisterType(domain.BlockTypeYouTube, NewYouTube) }

var ErrInvalidEmbedURL = errors.New("Please enter a valid YouTube URL")

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/watch\?.*v=([^&\n?#]+)`),
}

// ExtractVideoID returns the video id in a YouTube URL, or "" when the URL
// matches none of the accepted forms.
func ExtractVideoID(url string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// EmbedURL is the frame source for a video id.
func EmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + videoID
}

// YouTube shows either a URL prompt or an embedded player.
type YouTube struct {
	data     domain.YouTubeData
	videoID  string
	notice   Notice
	readOnly bool

	cb  Callbacks
	now func() time.Time

	el    *surface.Surface
	input *surface.Surface
	alert *surface.Surface
}

func NewYouTube(data domain.BlockData, cb Callbacks, opts Options) Block {
	d, _ := data.(domain.YouTubeData)
	return &YouTube{
		data:    d,
		videoID: ExtractVideoID(d.URL),
		cb:      cb,
		now:     opts.clock(),
	}
}

func (y *YouTube) Type() domain.BlockType { return domain.BlockTypeYouTube }

func (y *YouTube) Render() *surface.Surface {
	if y.el == nil {
		y.el = surface.New("div")
		y.el.SetAttr("class", "youtube-block")
		y.alert = surface.New("div")
		y.alert.SetAttr("role", "alert")
		y.draw()
	}
	y.refreshNotice()
	return y.el
}

func (y *YouTube) Save() domain.BlockData {
	return domain.YouTubeData{URL: y.data.URL}
}

func (y *YouTube) FocusSurface(bool) *surface.Surface {
	y.Render()
	return y.input
}

func (y *YouTube) SetReadOnly(ro bool) { y.readOnly = ro }

// VideoID is empty until a valid URL is committed.
func (y *YouTube) VideoID() string { return y.videoID }

func (y *YouTube) Embedded() bool { return y.videoID != "" }

// Notice returns the visible transient message, if any.
func (y *YouTube) Notice() (string, bool) {
	return y.notice.Message, y.notice.Visible(y.now())
}

// InputSurface is the URL field, nil while a video is embedded.
func (y *YouTube) InputSurface() *surface.Surface {
	y.Render()
	return y.input
}

// Embed validates url and commits it. On failure the block keeps its prompt
// and shows a transient message.
func (y *YouTube) Embed(url string) error {
	if y.readOnly {
		return nil
	}
	url = strings.TrimSpace(url)
	id := ExtractVideoID(url)
	if id == "" {
		y.notice = newNotice(ErrInvalidEmbedURL.Error(), y.now())
		y.refreshNotice()
		return ErrInvalidEmbedURL
	}
	y.data.URL = url
	y.videoID = id
	y.notice = Notice{}
	y.draw()
	return nil
}

// EmbedInput commits whatever is typed in the URL field.
func (y *YouTube) EmbedInput() error {
	in := y.InputSurface()
	if in == nil {
		return nil
	}
	return y.Embed(in.Text())
}

// Edit forgets the committed video and returns to the prompt.
func (y *YouTube) Edit() {
	if y.readOnly {
		return
	}
	y.data.URL = ""
	y.videoID = ""
	y.draw()
}

// Remove asks the manager to drop this block.
func (y *YouTube) Remove() {
	if !y.readOnly {
		y.cb.backspace()
	}
}

func (y *YouTube) refreshNotice() {
	if y.alert == nil {
		return
	}
	if y.notice.Visible(y.now()) {
		y.alert.SetMarkup(html.EscapeString(y.notice.Message))
	} else {
		y.alert.SetMarkup("")
	}
}

func (y *YouTube) draw() {
	if y.el == nil {
		return
	}
	y.el.ClearChildren()
	y.input = nil

	if y.videoID != "" {
		frame := surface.New("iframe")
		frame.SetAttr("src", EmbedURL(y.videoID))
		frame.SetAttr("frameborder", "0")
		frame.SetAttr("allowfullscreen", "true")
		y.el.Append(frame)
	} else {
		y.input = surface.NewEditable("input", html.EscapeString(y.data.URL))
		y.input.SetAttr("type", "url")
		y.input.SetAttr("placeholder", "Paste a YouTube URL")
		y.el.Append(y.input)
	}
	y.el.Append(y.alert)
	y.refreshNotice()
}
