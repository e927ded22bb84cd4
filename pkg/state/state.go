package state

import (
	"fmt"
	"sync"

	"github.com/mikeboe/company-researcher/pkg/observer"
)

// Document is a single retrieved source, keyed in the state by its URL.
type Document struct {
	Title      string  `json:"title"`
	RawContent string  `json:"raw_content"`
	Query      string  `json:"query"`
	Score      float64 `json:"score,omitempty"`
}

// Key identifies one writable field of the research state.
type Key string

const (
	KeyMessages   Key = "messages"
	KeySiteScrape Key = "site_scrape"

	KeyCompanyData   Key = "company_data"
	KeyIndustryData  Key = "industry_data"
	KeyFinancialData Key = "financial_data"
	KeyNewsData      Key = "news_data"

	KeyCuratedCompanyData   Key = "curated_company_data"
	KeyCuratedIndustryData  Key = "curated_industry_data"
	KeyCuratedFinancialData Key = "curated_financial_data"
	KeyCuratedNewsData      Key = "curated_news_data"

	KeyCompanyBriefing   Key = "company_briefing"
	KeyIndustryBriefing  Key = "industry_briefing"
	KeyFinancialBriefing Key = "financial_briefing"
	KeyNewsBriefing      Key = "news_briefing"

	KeyReferences Key = "references"
	KeyReport     Key = "report"
)

// Update is the partial result a stage hands back for merging. Values are
// merged additively: document maps union into the existing map, message and
// reference slices append, scalar keys overwrite. Nothing is ever deleted.
type Update map[Key]any

// Params are the caller-supplied inputs for one research run.
type Params struct {
	Company    string
	CompanyURL string
	HQLocation string
	Industry   string
}

// State is the shared mutable aggregate for one run. Concurrent fan-out
// stages own disjoint write keys, so merges need no cross-stage coordination;
// the mutex only guards the append-only narrative log and the merge itself.
type State struct {
	Company    string `json:"company"`
	CompanyURL string `json:"company_url"`
	HQLocation string `json:"hq_location"`
	Industry   string `json:"industry"`

	JobID    string            `json:"job_id"`
	Notifier observer.Notifier `json:"-"`

	SiteScrape string `json:"site_scrape,omitempty"`

	CompanyData   map[string]Document `json:"company_data"`
	IndustryData  map[string]Document `json:"industry_data"`
	FinancialData map[string]Document `json:"financial_data"`
	NewsData      map[string]Document `json:"news_data"`

	CuratedCompanyData   map[string]Document `json:"curated_company_data"`
	CuratedIndustryData  map[string]Document `json:"curated_industry_data"`
	CuratedFinancialData map[string]Document `json:"curated_financial_data"`
	CuratedNewsData      map[string]Document `json:"curated_news_data"`

	CompanyBriefing   string `json:"company_briefing,omitempty"`
	IndustryBriefing  string `json:"industry_briefing,omitempty"`
	FinancialBriefing string `json:"financial_briefing,omitempty"`
	NewsBriefing      string `json:"news_briefing,omitempty"`

	References []string `json:"references"`
	Messages   []string `json:"messages"`

	// Report is nil until the editor produces one; it stays nil when no
	// briefings existed to compile.
	Report *string `json:"report"`

	mu sync.Mutex
}

// New creates the run state from caller parameters.
func New(params Params, jobID string, notifier observer.Notifier) *State {
	return &State{
		Company:    params.Company,
		CompanyURL: params.CompanyURL,
		HQLocation: params.HQLocation,
		Industry:   params.Industry,
		JobID:      jobID,
		Notifier:   notifier,

		CompanyData:   make(map[string]Document),
		IndustryData:  make(map[string]Document),
		FinancialData: make(map[string]Document),
		NewsData:      make(map[string]Document),

		CuratedCompanyData:   make(map[string]Document),
		CuratedIndustryData:  make(map[string]Document),
		CuratedFinancialData: make(map[string]Document),
		CuratedNewsData:      make(map[string]Document),
	}
}

// Apply merges a stage update into the state. Document maps union key by key,
// messages and references append, everything else overwrites. Unknown keys
// are rejected so schema violations surface instead of silently vanishing.
func (s *State) Apply(u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range u {
		switch key {
		case KeyMessages:
			msgs, ok := value.([]string)
			if !ok {
				return fmt.Errorf("state: %s expects []string, got %T", key, value)
			}
			s.Messages = append(s.Messages, msgs...)

		case KeyReferences:
			refs, ok := value.([]string)
			if !ok {
				return fmt.Errorf("state: %s expects []string, got %T", key, value)
			}
			s.References = append(s.References, refs...)

		case KeySiteScrape:
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("state: %s expects string, got %T", key, value)
			}
			s.SiteScrape = str

		case KeyCompanyData, KeyIndustryData, KeyFinancialData, KeyNewsData,
			KeyCuratedCompanyData, KeyCuratedIndustryData, KeyCuratedFinancialData, KeyCuratedNewsData:
			docs, ok := value.(map[string]Document)
			if !ok {
				return fmt.Errorf("state: %s expects map[string]Document, got %T", key, value)
			}
			dst := s.docsLocked(key)
			for url, doc := range docs {
				dst[url] = doc
			}

		case KeyCompanyBriefing, KeyIndustryBriefing, KeyFinancialBriefing, KeyNewsBriefing:
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("state: %s expects string, got %T", key, value)
			}
			s.setBriefingLocked(key, str)

		case KeyReport:
			switch v := value.(type) {
			case *string:
				s.Report = v
			case string:
				s.Report = &v
			default:
				return fmt.Errorf("state: %s expects string or *string, got %T", key, value)
			}

		default:
			return fmt.Errorf("state: unknown key %q", key)
		}
	}
	return nil
}

// AppendMessage atomically adds one entry to the narrative log. Stages
// normally return messages through their update; this is for the runner's
// failure narratives.
func (s *State) AppendMessage(msg string) {
	s.mu.Lock()
	s.Messages = append(s.Messages, msg)
	s.mu.Unlock()
}

// Docs returns the document map stored under key, or nil if the key does not
// hold documents.
func (s *State) Docs(key Key) map[string]Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docsLocked(key)
}

func (s *State) docsLocked(key Key) map[string]Document {
	switch key {
	case KeyCompanyData:
		return s.CompanyData
	case KeyIndustryData:
		return s.IndustryData
	case KeyFinancialData:
		return s.FinancialData
	case KeyNewsData:
		return s.NewsData
	case KeyCuratedCompanyData:
		return s.CuratedCompanyData
	case KeyCuratedIndustryData:
		return s.CuratedIndustryData
	case KeyCuratedFinancialData:
		return s.CuratedFinancialData
	case KeyCuratedNewsData:
		return s.CuratedNewsData
	}
	return nil
}

// Briefing returns the briefing text stored under key.
func (s *State) Briefing(key Key) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case KeyCompanyBriefing:
		return s.CompanyBriefing
	case KeyIndustryBriefing:
		return s.IndustryBriefing
	case KeyFinancialBriefing:
		return s.FinancialBriefing
	case KeyNewsBriefing:
		return s.NewsBriefing
	}
	return ""
}

func (s *State) setBriefingLocked(key Key, text string) {
	switch key {
	case KeyCompanyBriefing:
		s.CompanyBriefing = text
	case KeyIndustryBriefing:
		s.IndustryBriefing = text
	case KeyFinancialBriefing:
		s.FinancialBriefing = text
	case KeyNewsBriefing:
		s.NewsBriefing = text
	}
}

// Snapshot returns a copy safe to hand to consumers while later stages keep
// mutating the live state. Document maps and slices are copied; document
// values and strings are immutable and shared.
func (s *State) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	copyDocs := func(src map[string]Document) map[string]Document {
		dst := make(map[string]Document, len(src))
		for k, v := range src {
			dst[k] = v
		}
		return dst
	}

	snap := &State{
		Company:    s.Company,
		CompanyURL: s.CompanyURL,
		HQLocation: s.HQLocation,
		Industry:   s.Industry,
		JobID:      s.JobID,
		Notifier:   s.Notifier,
		SiteScrape: s.SiteScrape,

		CompanyData:   copyDocs(s.CompanyData),
		IndustryData:  copyDocs(s.IndustryData),
		FinancialData: copyDocs(s.FinancialData),
		NewsData:      copyDocs(s.NewsData),

		CuratedCompanyData:   copyDocs(s.CuratedCompanyData),
		CuratedIndustryData:  copyDocs(s.CuratedIndustryData),
		CuratedFinancialData: copyDocs(s.CuratedFinancialData),
		CuratedNewsData:      copyDocs(s.CuratedNewsData),

		CompanyBriefing:   s.CompanyBriefing,
		IndustryBriefing:  s.IndustryBriefing,
		FinancialBriefing: s.FinancialBriefing,
		NewsBriefing:      s.NewsBriefing,

		References: append([]string(nil), s.References...),
		Messages:   append([]string(nil), s.Messages...),
	}
	if s.Report != nil {
		report := *s.Report
		snap.Report = &report
	}
	return snap
}
