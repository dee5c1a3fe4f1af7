package latexonline

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matchwise/matchwise/internal/domain/artifact"
	"github.com/matchwise/matchwise/internal/domain/typeset"
	"github.com/matchwise/matchwise/internal/logger"
)

const (
	presignTTL     = time.Hour
	connectTimeout = 30 * time.Second
	readTimeout    = 120 * time.Second
	tempKeyPrefix  = "tmp/latex"
	maxErrorBody   = 500
)

// Client compiles LaTeX through a compile-by-URL service: it uploads the
// source to temporary object storage, presigns a fetch URL, asks the
// service to compile it, and always deletes the temporary object.
type Client struct {
	endpoint string
	store    artifact.Store
	http     *http.Client
	logger   *zap.Logger
}

func New(endpoint string, store artifact.Store, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		store:    store,
		logger:   log,
		http: &http.Client{
			// Cold-start compiles are slow; the read timeout is generous.
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
	}
}

// Compile returns PDF bytes on success. Compiler timeouts and non-2xx
// statuses come back as Result.Err, not Go errors.
func (c *Client) Compile(ctx context.Context, latexCode, id string) typeset.Result {
	if strings.TrimSpace(latexCode) == "" {
		return failure("LaTeX code is empty")
	}

	key := fmt.Sprintf("%s/rewrite_%s_%d.tex", tempKeyPrefix, id, time.Now().Unix())
	if err := c.store.Put(ctx, key, []byte(latexCode), "application/x-latex"); err != nil {
		c.logger.Error("tex upload failed", zap.String("key", key), zap.Error(err))
		return failure("could not stage LaTeX source for compilation")
	}
	// The temporary object must never outlive the call, success or
	// failure. Background context so a cancelled request still cleans up.
	defer func() {
		if err := c.store.Remove(context.Background(), key); err != nil {
			c.logger.Warn("failed to delete temporary tex object",
				zap.String("key", key), zap.Error(err))
			return
		}
		c.logger.Info("cleaned up temporary tex object", zap.String("key", key))
	}()

	texURL, err := c.store.Presign(ctx, key, presignTTL)
	if err != nil {
		c.logger.Error("presign failed", zap.String("key", key), zap.Error(err))
		return failure("could not generate fetch URL for LaTeX source")
	}

	pdf, errMsg := c.compile(ctx, texURL)
	if errMsg != "" {
		return failure(errMsg)
	}

	c.logger.Info("pdf compiled", zap.String("rewrite_id", id), zap.Int("bytes", len(pdf)))
	return typeset.Result{Success: true, PDF: pdf}
}

func (c *Client) compile(ctx context.Context, texURL string) ([]byte, string) {
	compileURL := fmt.Sprintf("%s?url=%s", c.endpoint, url.QueryEscape(texURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, compileURL, nil)
	if err != nil {
		return nil, fmt.Sprintf("building compiler request: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("compiler request failed", zap.Error(err))
		return nil, "LaTeX compiler request failed or timed out"
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "reading compiler response failed"
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("compiler returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logger.Truncate(string(body), maxErrorBody)))
		return nil, fmt.Sprintf("LaTeX compiler returned status %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return nil, "LaTeX compiler returned an empty response"
	}
	return body, ""
}

func failure(msg string) typeset.Result {
	return typeset.Result{Err: msg}
}
