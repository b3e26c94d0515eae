// Package infer sends captured session media to a hosted generative model
// and returns refined text. Expected failures (transport errors, bad status,
// empty candidates) are logged and surface as an empty string; nothing here
// propagates an error to the session controller.
package infer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Mode selects the instruction sent alongside the captured media.
type Mode string

const (
	// ModeTranscription asks for a verbatim transcript.
	ModeTranscription Mode = "transcription"
	// ModePrompt asks for a clarity rewrite of the spoken words.
	ModePrompt Mode = "prompt"
)

// Frame caps for the screen-context part of a request. Frames ride along a
// full video part at a lower cap since the video already carries the motion.
const (
	frameCap          = 10
	frameCapWithVideo = 5
)

// Request is one session's worth of captured media.
type Request struct {
	Audio  []byte   // WAV bytes, may be nil
	Video  []byte   // WebM bytes, may be nil
	Frames []string // base64 JPEG stills sampled by the renderer
	Mode   Mode
}

// Client calls the generative language REST API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	log        *logrus.Entry
}

// NewClient creates a Client for the given model and endpoint base URL.
func NewClient(apiKey, model, baseURL string, timeout time.Duration, log *logrus.Entry) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log,
	}
}

// Wire types for generateContent.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Refine sends the request's media and instruction to the model and returns
// the refined text, or "" when the model produced nothing usable.
func (c *Client) Refine(ctx context.Context, req Request) string {
	parts := buildParts(req)
	if len(parts) == 0 {
		return ""
	}

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: parts}}})
	if err != nil {
		c.log.WithError(err).Error("inference: encoding request")
		return ""
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.log.WithError(err).Error("inference: building request")
		return ""
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.WithError(err).Error("inference: request failed")
		return ""
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.WithError(err).Error("inference: reading response")
		return ""
	}

	if resp.StatusCode != http.StatusOK {
		c.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   truncate(string(respBody), 500),
		}).Error("inference: non-OK response")
		return ""
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.log.WithError(err).Error("inference: decoding response")
		return ""
	}
	if parsed.Error != nil {
		c.log.WithField("message", parsed.Error.Message).Error("inference: API error")
		return ""
	}
	if len(parsed.Candidates) == 0 {
		c.log.Warn("inference: no candidates in response")
		return ""
	}

	var sb strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())

	c.log.WithFields(logrus.Fields{
		"elapsed": time.Since(start).Round(time.Millisecond),
		"chars":   len(text),
	}).Debug("inference complete")

	return text
}

// buildParts assembles the ordered part list: sampled frames, then the
// primary media, then the trailing instruction. Returns nil when the
// request carries no media at all.
func buildParts(req Request) []part {
	hasAudio := len(req.Audio) > 0
	hasVideo := len(req.Video) > 0
	if !hasAudio && !hasVideo {
		return nil
	}

	limit := frameCap
	if hasVideo {
		limit = frameCapWithVideo
	}

	var parts []part
	for _, frame := range subsampleFrames(req.Frames, limit) {
		parts = append(parts, part{InlineData: &inlineData{MIMEType: "image/jpeg", Data: frame}})
	}
	if hasVideo {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: "video/webm",
			Data:     base64.StdEncoding.EncodeToString(req.Video),
		}})
	}
	if hasAudio {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: "audio/wav",
			Data:     base64.StdEncoding.EncodeToString(req.Audio),
		}})
	}

	hasScreen := hasVideo || len(req.Frames) > 0
	return append(parts, part{Text: instruction(req.Mode, hasAudio, hasScreen)})
}

// subsampleFrames picks at most max frames at a uniform stride of
// max(1, len/max), always starting from the first frame.
func subsampleFrames(frames []string, max int) []string {
	if len(frames) == 0 || max <= 0 {
		return nil
	}
	if len(frames) <= max {
		return frames
	}

	stride := len(frames) / max
	if stride < 1 {
		stride = 1
	}

	sampled := make([]string, 0, max)
	for i := 0; i < len(frames) && len(sampled) < max; i += stride {
		sampled = append(sampled, frames[i])
	}
	return sampled
}

// instruction selects the trailing prompt text by mode and media mix.
func instruction(mode Mode, hasAudio, hasScreen bool) string {
	if !hasAudio {
		// Video-only flow: nothing was said, describe what was shown.
		return "Watch the attached screen recording and produce a concise written " +
			"summary of what it shows. Output only the summary text, with no preamble."
	}

	switch mode {
	case ModePrompt:
		if hasScreen {
			return "Listen to the attached audio recording and look at the attached " +
				"screen captures for context. Rewrite the speaker's words as clear, " +
				"well-structured text, resolving references like \"this\" or \"here\" " +
				"against what is visible on screen. Output only the rewritten text."
		}
		return "Listen to the attached audio recording and rewrite the speaker's " +
			"words as clear, well-structured text, fixing false starts and filler " +
			"words while preserving the meaning. Output only the rewritten text."
	default:
		if hasScreen {
			return "Transcribe the speech in the attached audio recording exactly as " +
				"spoken, using the attached screen captures only to resolve technical " +
				"terms and names. Output only the transcribed text."
		}
		return "Transcribe the speech in the attached audio recording exactly as " +
			"spoken. Output only the transcribed text, with no commentary."
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
