package transcriber

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/resilience"
)

// HTTPBackend talks to an opaque networked ASR server over three JSON POST
// endpoints: /asr/init, /asr/feed, /asr/finalize. The server owns the real
// per-utterance state and hands back an opaque token the client threads
// through the remaining calls.
type HTTPBackend struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
	retryCfg   resilience.RetryConfig
}

// NewHTTPBackend builds a backend bound to baseURL (e.g. "http://host:8080"),
// wrapped in a circuit breaker tuned for a single critical backend
// dependency and the standard backend retry policy.
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    resilience.New(resilience.DefaultConfig()),
		retryCfg:   resilience.BackendRetryConfig(),
	}
}

type initRequest struct {
	Language        string  `json:"language,omitempty"`
	UnfixedChunkNum int     `json:"unfixed_chunk_num"`
	UnfixedTokenNum int     `json:"unfixed_token_num"`
	ChunkSizeSec    float64 `json:"chunk_size_sec"`
}

type feedRequest struct {
	Token   string `json:"token"`
	PCM16LE []byte `json:"-"`
}

type backendResponse struct {
	Token    string `json:"token"`
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Ready reports whether the backend's circuit breaker currently allows
// traffic, used as a coarse readiness signal for /health.
func (b *HTTPBackend) Ready() bool {
	return b.breaker.State() != resilience.Open
}

// Init starts a new utterance, returning a State whose opaque field carries
// the server-issued token.
func (b *HTTPBackend) Init(ctx context.Context, params InitParams) (*State, error) {
	req := initRequest{
		Language:        params.LanguageHint,
		UnfixedChunkNum: params.UnfixedChunkNum,
		UnfixedTokenNum: params.UnfixedTokenNum,
		ChunkSizeSec:    params.ChunkSizeSec,
	}
	var resp backendResponse
	if err := b.call(ctx, "/asr/init", req, &resp); err != nil {
		return nil, err
	}
	return &State{Text: resp.Text, Language: resp.Language, opaque: resp.Token}, nil
}

// Feed submits one chunk of 16kHz mono float32 audio, returning the updated
// state with the current best interim transcription.
func (b *HTTPBackend) Feed(ctx context.Context, state *State, samples []float32) (*State, error) {
	token, _ := state.opaque.(string)
	pcm := floatsToPCM16LE(samples)

	body := struct {
		Token string `json:"token"`
		PCM16 []byte `json:"pcm16le"`
	}{Token: token, PCM16: pcm}

	var resp backendResponse
	if err := b.call(ctx, "/asr/feed", body, &resp); err != nil {
		return nil, err
	}
	return &State{Text: resp.Text, Language: resp.Language, opaque: resp.Token}, nil
}

// Finalize flushes remaining buffered audio and returns the final text.
func (b *HTTPBackend) Finalize(ctx context.Context, state *State) (*State, error) {
	token, _ := state.opaque.(string)
	body := struct {
		Token string `json:"token"`
	}{Token: token}

	var resp backendResponse
	if err := b.call(ctx, "/asr/finalize", body, &resp); err != nil {
		return nil, err
	}
	return &State{Text: resp.Text, Language: resp.Language, opaque: resp.Token}, nil
}

// call performs one POST, retried per b.retryCfg and gated by b.breaker.
func (b *HTTPBackend) call(ctx context.Context, path string, reqBody, respBody any) error {
	return resilience.Retry(ctx, b.retryCfg, func() error {
		if err := b.breaker.Allow(); err != nil {
			return err
		}
		err := b.doOnce(ctx, path, reqBody, respBody)
		if err != nil && resilience.IsRetryableHTTP(err) {
			b.breaker.Failure()
		} else if err == nil {
			b.breaker.Success()
		}
		return err
	})
}

func (b *HTTPBackend) doOnce(ctx context.Context, path string, reqBody, respBody any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("transcriber: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("transcriber: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transcriber: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &resilience.HTTPStatusError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("transcriber: decode response from %s: %w", path, err)
	}
	return nil
}

// floatsToPCM16LE converts float32 samples in [-1,1] to 16-bit signed
// little-endian PCM, the wire format the backend's feed endpoint expects.
func floatsToPCM16LE(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v)))
	}
	return buf
}
