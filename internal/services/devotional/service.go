package devotional

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/encontrocomfe/backend/internal/domain/model"
	redrepo "github.com/encontrocomfe/backend/internal/repo/redis"
)

// Cache is the per-day devotional cache, backed by redis.
type Cache interface {
	Get(ctx context.Context, dayKey string) (model.Devotional, error)
	Set(ctx context.Context, dayKey string, d model.Devotional, ttl time.Duration) error
}

type Dependencies struct {
	Cache  Cache
	Client *http.Client
	Logger *zap.Logger
}

type Config struct {
	BaseURL      string
	TranslateURL string
	CacheTTL     time.Duration
}

type Service struct {
	deps Dependencies
	cfg  Config
	now  func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Client == nil {
		deps.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://beta.ourmanna.com/api/v1/get"
	}
	if cfg.TranslateURL == "" {
		cfg.TranslateURL = "https://api.mymemory.translated.net/get"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 26 * time.Hour
	}
	return &Service{deps: deps, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Today returns the verse of the day in Portuguese. Upstream failures never
// bubble up to the caller: the built-in rotation answers instead.
func (s *Service) Today(ctx context.Context) (model.Devotional, error) {
	day := s.now()
	dayKey := day.Format("2006-01-02")

	if s.deps.Cache != nil {
		cached, err := s.deps.Cache.Get(ctx, dayKey)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redrepo.ErrDevotionalCacheMiss) {
			s.deps.Logger.Warn("devotional cache read failed", zap.Error(err))
		}
	}

	d, err := s.fetchAndTranslate(ctx, dayKey)
	if err != nil {
		s.deps.Logger.Warn("devotional fetch failed, using fallback", zap.Error(err))
		d = fallbackFor(day)
		d.Date = dayKey
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, dayKey, d, s.cfg.CacheTTL); err != nil {
			s.deps.Logger.Warn("devotional cache write failed", zap.Error(err))
		}
	}
	return d, nil
}

type mannaResponse struct {
	Verse struct {
		Details struct {
			Text      string `json:"text"`
			Reference string `json:"reference"`
			Version   string `json:"version"`
		} `json:"details"`
	} `json:"verse"`
}

func (s *Service) fetchAndTranslate(ctx context.Context, dayKey string) (model.Devotional, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?format=json&order=daily", nil)
	if err != nil {
		return model.Devotional{}, fmt.Errorf("build devotional request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.deps.Client.Do(req)
	if err != nil {
		return model.Devotional{}, fmt.Errorf("fetch devotional: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Devotional{}, fmt.Errorf("devotional upstream status %d", resp.StatusCode)
	}

	var manna mannaResponse
	if err := json.NewDecoder(resp.Body).Decode(&manna); err != nil {
		return model.Devotional{}, fmt.Errorf("decode devotional: %w", err)
	}
	text := strings.TrimSpace(manna.Verse.Details.Text)
	if text == "" {
		return model.Devotional{}, fmt.Errorf("devotional upstream returned empty verse")
	}

	translated, err := s.translate(ctx, text)
	if err != nil {
		return model.Devotional{}, fmt.Errorf("translate devotional: %w", err)
	}

	return model.Devotional{
		Reference: manna.Verse.Details.Reference,
		Text:      translated,
		Date:      dayKey,
		Source:    "ourmanna",
	}, nil
}

type translateResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
}

// translate runs the text through the translation endpoint one sentence at a
// time; the free tier rejects long single queries.
func (s *Service) translate(ctx context.Context, text string) (string, error) {
	sentences := splitSentences(text)
	out := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		q := url.Values{}
		q.Set("q", sentence)
		q.Set("langpair", "en|pt-BR")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.TranslateURL+"?"+q.Encode(), nil)
		if err != nil {
			return "", fmt.Errorf("build translate request: %w", err)
		}

		resp, err := s.deps.Client.Do(req)
		if err != nil {
			return "", fmt.Errorf("call translator: %w", err)
		}

		var tr translateResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&tr)
		resp.Body.Close()
		if decodeErr != nil {
			return "", fmt.Errorf("decode translation: %w", decodeErr)
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("translator status %d", resp.StatusCode)
		}

		translated := strings.TrimSpace(tr.ResponseData.TranslatedText)
		if translated == "" {
			return "", fmt.Errorf("translator returned empty sentence")
		}
		out = append(out, translated)
	}
	return strings.Join(out, " "), nil
}

func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == ';' {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	if len(sentences) == 0 {
		sentences = append(sentences, strings.TrimSpace(text))
	}
	return sentences
}

func fallbackFor(day time.Time) model.Devotional {
	v := fallbackVerses[day.YearDay()%len(fallbackVerses)]
	return model.Devotional{Reference: v.ref, Text: v.text, Source: "builtin"}
}

// fallbackVerses rotate by day-of-year when the upstream or the translator
// is unavailable.
var fallbackVerses = []struct {
	ref  string
	text string
}{
	{"Salmos 37:5", "Entrega o teu caminho ao Senhor; confia nele, e ele tudo fará."},
	{"Provérbios 3:5", "Confia no Senhor de todo o teu coração e não te estribes no teu próprio entendimento."},
	{"Jeremias 29:11", "Porque eu bem sei os pensamentos que tenho a vosso respeito, diz o Senhor; pensamentos de paz e não de mal, para vos dar o fim que esperais."},
	{"Filipenses 4:13", "Posso todas as coisas naquele que me fortalece."},
	{"Salmos 23:1", "O Senhor é o meu pastor; nada me faltará."},
	{"Isaías 41:10", "Não temas, porque eu sou contigo; não te assombres, porque eu sou o teu Deus."},
	{"Mateus 6:33", "Buscai primeiro o reino de Deus, e a sua justiça, e todas estas coisas vos serão acrescentadas."},
	{"Romanos 8:28", "Sabemos que todas as coisas contribuem juntamente para o bem daqueles que amam a Deus."},
	{"1 Coríntios 13:4", "O amor é sofredor, é benigno; o amor não é invejoso; o amor não trata com leviandade, não se ensoberbece."},
	{"Eclesiastes 4:9", "Melhor é serem dois do que um, porque têm melhor paga do seu trabalho."},
	{"Salmos 118:24", "Este é o dia que fez o Senhor; regozijemo-nos e alegremo-nos nele."},
	{"Josué 1:9", "Sê forte e corajoso; não temas, nem te espantes, porque o Senhor, teu Deus, é contigo por onde quer que andares."},
	{"Salmos 46:1", "Deus é o nosso refúgio e fortaleza, socorro bem presente na angústia."},
	{"Gálatas 6:9", "Não nos cansemos de fazer o bem, pois no tempo próprio colheremos, se não desanimarmos."},
}
