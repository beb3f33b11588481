// Package future produces the "5 years of vegetation growth" projection:
// a generated image plus a fixed-shape risk report derived from the
// analysis component list.
package future

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
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

const projectionPrompt = `Montre cette photo d'infrastructure électrique telle ` +
	`qu'elle apparaîtrait après 5 ans de croissance naturelle de la végétation : ` +
	`arbres plus hauts, branches plus proches des équipements, broussailles plus ` +
	`denses. Conserve le cadrage et les équipements d'origine.`

type Config struct {
	APIURL     string
	APIKey     string
	Model      string
	HTTP       *http.Client
	Cache      *cache.Cache
	Controller *demo.Controller
	Assets     *demo.AssetLoader
	Log        *slog.Logger
	Delay      func(ctx context.Context) error
	Now        func() time.Time
}

type Client struct {
	apiURL string
	apiKey string
	model  string
	http   *http.Client
	cache  *cache.Cache
	ctrl   *demo.Controller
	assets *demo.AssetLoader
	log    *slog.Logger
	delay  func(ctx context.Context) error
	now    func() time.Time
}

func New(cfg Config) *Client {
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Delay == nil {
		cfg.Delay = func(ctx context.Context) error { return nil }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http:   cfg.HTTP,
		cache:  cfg.Cache,
		ctrl:   cfg.Controller,
		assets: cfg.Assets,
		log:    cfg.Log,
		delay:  cfg.Delay,
		now:    cfg.Now,
	}
}

// Project never fails; every path ends in a served FutureResult.
func (c *Client) Project(ctx context.Context, image string) (model.FutureResult, model.Meta) {
	start := time.Now()
	hash := imagehash.Sum(image)
	st := c.ctrl.Status()
	meta := model.Meta{Hash: hash}

	if status, data := c.cache.Get(cache.OpFuture, hash, st.Enabled); status == cache.StatusHit || status == cache.StatusStale {
		var res model.FutureResult
		err := json.Unmarshal(data, &res)
		if err == nil {
			meta.Source = "cache"
			meta.Status = string(status)
			meta.DurationMS = time.Since(start).Milliseconds()
			return res, meta
		}
		c.log.Warn("cached projection undecodable, ignoring", "hash", hash, "err", err)
	}

	if st.Enabled {
		return c.projectDemo(ctx, st, hash, image, start)
	}

	futureImage, err := c.futureImage(ctx, hash, image)
	if err != nil {
		c.log.Warn("image generation failed, serving fallback", "err", err)
		res := fallback.Future("")
		res.FutureImage = image // show the original rather than nothing
		c.put(ctx, hash, res, cache.SourceFallback)
		meta.Source = "fallback"
		meta.Status = "api_error"
		meta.DurationMS = time.Since(start).Milliseconds()
		return res, meta
	}

	res := model.FutureResult{
		FutureImage: futureImage,
		Analysis:    BuildReport(c.componentsFor(hash), c.now()),
	}
	c.put(ctx, hash, res, cache.SourceAPI)
	meta.Source = "api"
	meta.Status = "generated"
	meta.DurationMS = time.Since(start).Milliseconds()
	return res, meta
}

func (c *Client) projectDemo(ctx context.Context, st demo.Status, hash, image string, start time.Time) (model.FutureResult, model.Meta) {
	meta := model.Meta{Hash: hash}
	if err := c.delay(ctx); err != nil {
		c.log.Debug("demo delay interrupted", "err", err)
	}

	sc, ok := demo.Lookup(st.Scenario)
	if !ok {
		res := fallback.Future("")
		res.FutureImage = image
		c.put(ctx, hash, res, cache.SourceFallback)
		meta.Source = "fallback"
		meta.Status = st.Reason
		meta.DurationMS = time.Since(start).Milliseconds()
		return res, meta
	}

	res := sc.Future
	if c.assets != nil {
		if img, err := c.assets.Image(sc.FutureFile); err == nil {
			res.FutureImage = img
		} else {
			c.log.Warn("demo future asset unavailable", "scenario", sc.Name, "err", err)
			res.FutureImage = image
		}
	} else {
		res.FutureImage = image
	}
	c.put(ctx, hash, res, cache.SourceDemo)
	meta.Source = "demo"
	meta.Status = st.Reason
	meta.DurationMS = time.Since(start).Milliseconds()
	return res, meta
}

// componentsFor reuses a cached analysis for the same image when present,
// so the report reflects what the user saw on the previous screen.
func (c *Client) componentsFor(hash string) []model.Component {
	status, data := c.cache.Get(cache.OpAnalyze, hash, false)
	if status == cache.StatusHit || status == cache.StatusStale {
		var res model.AnalysisResult
		if err := json.Unmarshal(data, &res); err == nil && len(res.Components) > 0 {
			return res.Components
		}
	}
	return fallback.Analysis().Components
}

// futureImage returns the generated image, consulting the dedicated image
// cache first so a re-generated report does not redo the expensive call.
func (c *Client) futureImage(ctx context.Context, hash, image string) (string, error) {
	if status, data := c.cache.Get(cache.OpFutureImage, hash, false); status == cache.StatusHit || status == cache.StatusStale {
		var img string
		if err := json.Unmarshal(data, &img); err == nil && img != "" {
			return img, nil
		}
	}

	img, err := c.generate(ctx, image)
	if err != nil {
		return "", err
	}
	if b, err := json.Marshal(img); err == nil {
		c.cache.Put(ctx, cache.OpFutureImage, hash, b, cache.SourceAPI)
	}
	return img, nil
}

type genRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Image          string `json:"image,omitempty"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type genResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

func (c *Client) generate(ctx context.Context, image string) (string, error) {
	body, err := json.Marshal(genRequest{
		Model:          c.model,
		Prompt:         projectionPrompt,
		Image:          imagehash.Strip(image),
		N:              1,
		Size:           "1024x1024",
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return "", fmt.Errorf("imagegen request encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("imagegen request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.ObserveUpstreamLatency("imagegen", time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("imagegen call: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("close response body", "err", cerr)
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("imagegen status=%d body=%q", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var gr genResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("imagegen decode: %w", err)
	}
	if len(gr.Data) == 0 {
		return "", fmt.Errorf("imagegen reply has no data")
	}
	if gr.Data[0].B64JSON != "" {
		return "data:image/png;base64," + gr.Data[0].B64JSON, nil
	}
	if gr.Data[0].URL != "" {
		return gr.Data[0].URL, nil
	}
	return "", fmt.Errorf("imagegen reply has neither image data nor url")
}

func (c *Client) put(ctx context.Context, hash string, res model.FutureResult, src cache.Source) {
	b, err := json.Marshal(res)
	if err != nil {
		c.log.Error("projection marshal failed", "err", err)
		return
	}
	c.cache.Put(ctx, cache.OpFuture, hash, b, src)
}
