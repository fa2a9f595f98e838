package dict

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/resilience"
	"github.com/GriffinCanCode/wordlens/internal/trace"
)

// Remote defaults
const (
	DefaultMaxRedirects = 5
	DefaultHTTPTimeout  = 10 * time.Second

	maxBodyBytes = 4 << 20

	// MW pronunciation recordings; {subdir}/{id}.mp3 is appended.
	audioBaseURL = "https://media.merriam-webster.com/audio/prons/en/us/mp3/"
)

// entrySchema is the minimum a Learner's entry must carry to be mapped.
const entrySchema = `{
  "type": "object",
  "required": ["meta"],
  "properties": {
    "meta": {
      "type": "object",
      "required": ["app-shortdef"],
      "properties": {
        "app-shortdef": {
          "type": "object",
          "required": ["hw", "def"],
          "properties": {
            "hw": {"type": "string"},
            "def": {"type": "array", "items": {"type": "string"}}
          }
        }
      }
    },
    "hwi": {
      "type": "object",
      "properties": {
        "prs": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "ipa": {"type": "string"},
              "sound": {"type": "object", "properties": {"audio": {"type": "string"}}}
            }
          }
        }
      }
    }
  }
}`

// RemoteConfig configures the Merriam-Webster client.
type RemoteConfig struct {
	URL          string // contains {word}; the key is sent as ?key=
	APIKey       string
	MaxRedirects int
	Timeout      time.Duration
	Retry        resilience.RetryConfig
	Breaker      resilience.Config
	HTTPClient   *http.Client
}

// RemoteClient looks words up in the Learner's dictionary, following the
// suggestion lists the API returns for near misses.
type RemoteClient struct {
	cfg     RemoteConfig
	client  *http.Client
	breaker *resilience.Breaker
	schema  *jsonschema.Schema
}

// NewRemoteClient compiles the response schema and prepares the client.
func NewRemoteClient(cfg RemoteConfig) (*RemoteClient, error) {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("entry.json", strings.NewReader(entrySchema)); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "add entry schema")
	}
	schema, err := compiler.Compile("entry.json")
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "compile entry schema")
	}

	return &RemoteClient{
		cfg:     cfg,
		client:  client,
		breaker: resilience.NewBreaker("dictionary-api", cfg.Breaker),
		schema:  schema,
	}, nil
}

// Lookup resolves word to an entry. Redirects are followed up to
// MaxRedirects times. A 404 or an empty result is NotFound; every other
// failure is RemoteLookupFailed.
func (c *RemoteClient) Lookup(ctx context.Context, word string) (Entry, error) {
	log := trace.Logger(ctx)
	query := word
	for hop := 0; ; hop++ {
		raw, err := c.fetch(ctx, query)
		if err != nil {
			if errors.IsCode(err, errors.NotFound) {
				return Entry{}, err
			}
			return Entry{}, errors.Wrap(err, errors.RemoteLookupFailed, "fetch entry").WithMetadata("word", query)
		}

		obj, next, err := classify(raw)
		if err != nil {
			return Entry{}, err
		}
		if obj != nil {
			return c.decode(obj)
		}

		if hop >= c.cfg.MaxRedirects {
			return Entry{}, errors.Newf(errors.RemoteLookupFailed, "too many redirects looking up %q", word).
				WithMetadata("last", next)
		}
		log.Debug("dictionary redirect", "from", query, "to", next, "hop", hop+1)
		query = next
	}
}

// classify inspects the top-level shape of a response. It returns the
// entry object, or the suggested word to request next.
func classify(raw []byte) (json.RawMessage, string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, "", errors.New(errors.RemoteLookupFailed, "empty response body")
	}
	switch raw[0] {
	case '{':
		return raw, "", nil
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return nil, "", errors.Wrap(err, errors.RemoteLookupFailed, "decode response")
		}
		if len(arr) == 0 {
			return nil, "", errors.New(errors.NotFound, "no entries")
		}
		first := bytes.TrimSpace(arr[0])
		if len(first) > 0 && first[0] == '{' {
			return first, "", nil
		}
		var next string
		if err := json.Unmarshal(first, &next); err == nil && next != "" {
			return nil, next, nil
		}
	}
	return nil, "", errors.New(errors.RemoteLookupFailed, "wrong type")
}

type mwEntry struct {
	Meta struct {
		Shortdef struct {
			HW  string   `json:"hw"`
			Def []string `json:"def"`
		} `json:"app-shortdef"`
	} `json:"meta"`
	HWI struct {
		Prs []struct {
			IPA   string `json:"ipa"`
			Sound struct {
				Audio string `json:"audio"`
			} `json:"sound"`
		} `json:"prs"`
	} `json:"hwi"`
}

func (c *RemoteClient) decode(obj json.RawMessage) (Entry, error) {
	var v any
	if err := json.Unmarshal(obj, &v); err != nil {
		return Entry{}, errors.Wrap(err, errors.RemoteLookupFailed, "decode entry")
	}
	if err := c.schema.Validate(v); err != nil {
		return Entry{}, errors.Wrap(err, errors.RemoteLookupFailed, "entry does not match schema")
	}

	var mw mwEntry
	if err := json.Unmarshal(obj, &mw); err != nil {
		return Entry{}, errors.Wrap(err, errors.RemoteLookupFailed, "decode entry")
	}

	hw, _, _ := strings.Cut(mw.Meta.Shortdef.HW, ":")
	e := Entry{
		Headword:       hw,
		Definitions:    mw.Meta.Shortdef.Def,
		Translations:   []string{},
		Pronunciations: make([]Pronunciation, 0, len(mw.HWI.Prs)),
	}
	if e.Definitions == nil {
		e.Definitions = []string{}
	}
	for _, p := range mw.HWI.Prs {
		var pr Pronunciation
		if p.IPA != "" {
			pr.IPA = strPtr(p.IPA)
		}
		if p.Sound.Audio != "" {
			pr.AudioURL = strPtr(mwAudioURL(p.Sound.Audio))
		}
		e.Pronunciations = append(e.Pronunciations, pr)
	}
	return e, nil
}

// mwAudioURL maps a recording id onto the media server. Files live in a
// subdirectory named after the id's first letter, except ids starting with
// "bix", "gg" or a digit placeholder "_".
func mwAudioURL(id string) string {
	var subdir string
	switch {
	case strings.HasPrefix(id, "bix"):
		subdir = "bix"
	case strings.HasPrefix(id, "gg"):
		subdir = "gg"
	case strings.HasPrefix(id, "_"):
		subdir = "number"
	default:
		subdir = id[:1]
	}
	return audioBaseURL + subdir + "/" + url.PathEscape(id) + ".mp3"
}

// fetch performs one logical request under the breaker, retrying
// transient failures. NotFound never counts against the breaker.
func (c *RemoteClient) fetch(ctx context.Context, word string) ([]byte, error) {
	countable := func(err error) bool {
		return !errors.IsCode(err, errors.NotFound) && ctx.Err() == nil
	}
	return resilience.Do(c.breaker, countable, func() ([]byte, error) {
		var body []byte
		err := resilience.Retry(ctx, c.cfg.Retry, func() error {
			var err error
			body, err = c.get(ctx, word)
			return err
		})
		return body, err
	})
}

func (c *RemoteClient) get(ctx context.Context, word string) ([]byte, error) {
	log := trace.Logger(ctx)
	reqID := uuid.New().String()
	start := time.Now()

	endpoint, err := c.endpoint(word)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	log.Info("dictionary request", "req_id", reqID, "word", word)
	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn("dictionary request failed", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, errors.Wrap(err, errors.Unavailable, "send request")
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			log.Debug("close response body", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, errors.Unavailable, "read response")
	}
	log.Info("dictionary response", "req_id", reqID, "status", resp.StatusCode, "bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Newf(errors.NotFound, "no entry for %q", word)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, errors.Newf(errors.Unavailable, "dictionary api status %d", resp.StatusCode)
	case resp.StatusCode/100 != 2:
		return nil, errors.Newf(errors.RemoteLookupFailed, "dictionary api status %d", resp.StatusCode)
	}
	return raw, nil
}

// endpoint expands the URL template for word and appends the API key.
func (c *RemoteClient) endpoint(word string) (string, error) {
	escaped := url.PathEscape(word)
	raw := c.cfg.URL
	if strings.Contains(raw, "{word}") {
		raw = strings.ReplaceAll(raw, "{word}", escaped)
	} else {
		raw = strings.TrimRight(raw, "/") + "/" + escaped
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, errors.ConfigInvalid, "parse dictionary url %q", c.cfg.URL)
	}
	if c.cfg.APIKey != "" {
		q := u.Query()
		q.Set("key", c.cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Breaker exposes the circuit state for health reporting.
func (c *RemoteClient) Breaker() *resilience.Breaker { return c.breaker }
