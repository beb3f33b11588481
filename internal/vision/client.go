// Package vision identifies electrical infrastructure components on an
// image, via a vision model when live calls are allowed and via canned
// scenario data otherwise.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/mohammed-shakir/gridsight/internal/cache"
	"github.com/mohammed-shakir/gridsight/internal/core/model"
	"github.com/mohammed-shakir/gridsight/internal/core/observability"
	"github.com/mohammed-shakir/gridsight/internal/demo"
	"github.com/mohammed-shakir/gridsight/internal/fallback"
	"github.com/mohammed-shakir/gridsight/internal/imagehash"
)

const analysisPrompt = `Analyse cette photo d'infrastructure électrique. ` +
	`Liste chaque composant identifié sous forme de liste numérotée. ` +
	`Pour chaque composant indique : Type, Confiance (en %), Détails, État, Risques ` +
	`liés à la végétation environnante. Réponds uniquement avec la liste.`

type Config struct {
	APIURL     string
	APIKey     string
	Model      string
	HTTP       *http.Client
	Cache      *cache.Cache
	Controller *demo.Controller
	Log        *slog.Logger
	// Delay simulates model latency on the demo path. Nil gets the default
	// randomized 800-2000 ms wait.
	Delay func(ctx context.Context) error
}

type Client struct {
	apiURL string
	apiKey string
	model  string
	http   *http.Client
	cache  *cache.Cache
	ctrl   *demo.Controller
	log    *slog.Logger
	delay  func(ctx context.Context) error
}

func New(cfg Config) *Client {
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 45 * time.Second}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Delay == nil {
		cfg.Delay = defaultDelay
	}
	return &Client{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http:   cfg.HTTP,
		cache:  cfg.Cache,
		ctrl:   cfg.Controller,
		log:    cfg.Log,
		delay:  cfg.Delay,
	}
}

func defaultDelay(ctx context.Context) error {
	d := 800*time.Millisecond + time.Duration(rand.Int63n(int64(1200*time.Millisecond)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Analyze never fails: every path terminates in a usable result plus a meta
// record describing how it was obtained.
func (c *Client) Analyze(ctx context.Context, image string) (model.AnalysisResult, model.Meta) {
	start := time.Now()
	hash := imagehash.Sum(image)
	st := c.ctrl.Status()

	meta := model.Meta{Hash: hash}

	if status, data := c.cache.Get(cache.OpAnalyze, hash, st.Enabled); status == cache.StatusHit || status == cache.StatusStale {
		var res model.AnalysisResult
		err := json.Unmarshal(data, &res)
		if err == nil {
			meta.Source = "cache"
			meta.Status = string(status)
			return res, c.finish(meta, start)
		}
		c.log.Warn("cached analysis undecodable, ignoring", "hash", hash, "err", err)
	}

	if st.Enabled {
		return c.analyzeDemo(ctx, st, hash, start)
	}

	res, err := c.analyzeLive(ctx, image)
	if err != nil {
		c.log.Warn("vision call failed, serving fallback", "err", err)
		res = fallback.Analysis()
		c.put(ctx, hash, res, cache.SourceFallback)
		meta.Source = "fallback"
		meta.Status = "api_error"
		return res, c.finish(meta, start)
	}
	c.put(ctx, hash, res, cache.SourceAPI)
	meta.Source = "api"
	meta.Status = "generated"
	return res, c.finish(meta, start)
}

func (c *Client) analyzeDemo(ctx context.Context, st demo.Status, hash string, start time.Time) (model.AnalysisResult, model.Meta) {
	meta := model.Meta{Hash: hash}
	if err := c.delay(ctx); err != nil {
		c.log.Debug("demo delay interrupted", "err", err)
	}
	sc, ok := demo.Lookup(st.Scenario)
	if !ok {
		res := fallback.Analysis()
		c.put(ctx, hash, res, cache.SourceFallback)
		meta.Source = "fallback"
		meta.Status = st.Reason
		return res, c.finish(meta, start)
	}
	c.put(ctx, hash, sc.Analysis, cache.SourceDemo)
	meta.Source = "demo"
	meta.Status = st.Reason
	return sc.Analysis, c.finish(meta, start)
}

func (c *Client) finish(meta model.Meta, start time.Time) model.Meta {
	meta.DurationMS = time.Since(start).Milliseconds()
	return meta
}

func (c *Client) put(ctx context.Context, hash string, res model.AnalysisResult, src cache.Source) {
	b, err := json.Marshal(res)
	if err != nil {
		c.log.Error("analysis marshal failed", "err", err)
		return
	}
	c.cache.Put(ctx, cache.OpAnalyze, hash, b, src)
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) analyzeLive(ctx context.Context, image string) (model.AnalysisResult, error) {
	url := image
	if !imagehash.HasPrefix(url) {
		url = "data:image/jpeg;base64," + strings.TrimSpace(url)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: analysisPrompt},
				{Type: "image_url", ImageURL: &imageRef{URL: url}},
			},
		}},
		MaxTokens: 1200,
	})
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("vision request encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.ObserveUpstreamLatency("vision", time.Since(start).Seconds())
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("vision call: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("close response body", "err", cerr)
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return model.AnalysisResult{}, fmt.Errorf("vision status=%d body=%q", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("vision decode: %w", err)
	}
	if len(cr.Choices) == 0 {
		return model.AnalysisResult{}, fmt.Errorf("vision reply has no choices")
	}

	components := ParseComponents(cr.Choices[0].Message.Content)
	// zero extracted components is returned verbatim, no synthetic filler
	return model.AnalysisResult{
		Components:  components,
		Annotations: Annotate(components),
	}, nil
}
