package dictionary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ohadf2015/boggle-new-sub003/internal/solver"
)

// Verdict sources, in order of authority the engine attributes to them.
const (
	SourceDictionary = "dictionary"
	SourceCommunity  = "community"
	SourceAI         = "ai"
)

// Verdict is the authoritative answer for a submitted word's tri-state
// validation.
type Verdict struct {
	IsValid    bool    `json:"isValid"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Service loads per-language word lists and answers word lookups. When a
// community/AI endpoint is configured, words missing from the local
// dictionary are referred there; otherwise the local list is final.
type Service struct {
	dir         string
	validateURL string
	client      *http.Client

	mu    sync.RWMutex
	lists map[string][]string
	sets  map[string]map[string]struct{}
}

func NewService(dir, validateURL string) *Service {
	return &Service{
		dir:         dir,
		validateURL: validateURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		lists:       make(map[string][]string),
		sets:        make(map[string]map[string]struct{}),
	}
}

// Load reads <dir>/<lang>.txt, one word per line, normalizing every entry.
func (s *Service) Load(lang string) error {
	data, err := os.ReadFile(filepath.Join(s.dir, lang+".txt"))
	if err != nil {
		return fmt.Errorf("load dictionary %q: %w", lang, err)
	}

	lines := strings.Split(string(data), "\n")
	list := make([]string, 0, len(lines))
	set := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		w := solver.Normalize(lang, line)
		if w == "" {
			continue
		}
		if _, dup := set[w]; dup {
			continue
		}
		set[w] = struct{}{}
		list = append(list, w)
	}

	s.mu.Lock()
	s.lists[lang] = list
	s.sets[lang] = set
	s.mu.Unlock()

	log.Info().Str("lang", lang).Int("words", len(list)).Msg("dictionary loaded")
	return nil
}

// LoadWords installs an in-memory word list (tests, embedded fallbacks).
// Words are normalized on the way in.
func (s *Service) LoadWords(lang string, words []string) {
	list := make([]string, 0, len(words))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		n := solver.Normalize(lang, w)
		if n == "" {
			continue
		}
		if _, dup := set[n]; dup {
			continue
		}
		set[n] = struct{}{}
		list = append(list, n)
	}
	s.mu.Lock()
	s.lists[lang] = list
	s.sets[lang] = set
	s.mu.Unlock()
}

// Words implements solver.WordSource.
func (s *Service) Words(lang string) ([]string, error) {
	s.mu.RLock()
	list, ok := s.lists[lang]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no dictionary loaded for %q", lang)
	}
	return list, nil
}

// Contains reports a local-dictionary hit for an already-normalized word.
func (s *Service) Contains(lang, word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[lang]
	if !ok {
		return false
	}
	_, hit := set[word]
	return hit
}

// Languages lists the loaded languages.
func (s *Service) Languages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.lists))
	for lang := range s.lists {
		out = append(out, lang)
	}
	return out
}

type validateRequest struct {
	Word     string `json:"word"`
	Language string `json:"language"`
}

// LookupWord resolves a word's verdict: local dictionary first, then the
// community/AI endpoint when configured. An unreachable endpoint degrades to
// the local answer rather than failing the lookup.
func (s *Service) LookupWord(ctx context.Context, lang, word string) Verdict {
	if s.Contains(lang, word) {
		return Verdict{IsValid: true, Source: SourceDictionary, Confidence: 1}
	}
	if s.validateURL == "" {
		return Verdict{IsValid: false, Source: SourceDictionary, Confidence: 1}
	}

	body, _ := json.Marshal(validateRequest{Word: word, Language: lang})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.validateURL, bytes.NewReader(body))
	if err != nil {
		return Verdict{IsValid: false, Source: SourceDictionary, Confidence: 1}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("word", word).Msg("validation service unreachable, using local verdict")
		return Verdict{IsValid: false, Source: SourceDictionary, Confidence: 1}
	}
	defer resp.Body.Close()

	var v Verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil || resp.StatusCode != http.StatusOK {
		log.Warn().Err(err).Int("status", resp.StatusCode).Msg("bad validation response, using local verdict")
		return Verdict{IsValid: false, Source: SourceDictionary, Confidence: 1}
	}
	if v.Source == "" {
		v.Source = SourceCommunity
	}
	return v
}
