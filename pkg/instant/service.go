package instant

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/glimpse-search/glimpse/pkg/types"
)

// WeatherProvider serves current conditions for a location. The
// default deployment has none; the instant route then 404s.
type WeatherProvider interface {
	Current(ctx context.Context, location string) (*types.InstantAnswer, error)
}

// Service bundles the instant answerers behind query-shape detection.
type Service struct {
	Rates     *RateTable
	Dict      *Dictionary
	Knowledge *KnowledgeBase
	Suggest   *Suggester
	Weather   WeatherProvider
}

// NewService creates a service with empty tables; callers replace the
// fields they have data for.
func NewService(suggestLimit int) *Service {
	return &Service{
		Rates:     NewRateTable("USD", nil),
		Dict:      NewDictionary(nil),
		Knowledge: NewKnowledgeBase(nil),
		Suggest:   NewSuggester(suggestLimit),
	}
}

var (
	calcShape     = regexp.MustCompile(`^[\d\s\.\+\-\*/\^%()×÷−·]+$`)
	convertShape  = regexp.MustCompile(`(?i)^(?:convert\s+)?([\d.]+)\s*([a-z]+)\s+(?:to|in)\s+([a-z]+)$`)
	currencyShape = regexp.MustCompile(`(?i)^(?:convert\s+)?([\d.]+)\s*([a-z]{3})\s+(?:to|in)\s+([a-z]{3})$`)
	defineShape   = regexp.MustCompile(`(?i)^(?:define|definition of|meaning of)\s+(.+)$`)
	timeShape     = regexp.MustCompile(`(?i)^(?:current\s+)?time(?:\s+in)?\s+(.+)$`)
	hashShape     = regexp.MustCompile(`(?i)^(md5|sha1|sha256|sha512)\s+(.+)$`)
)

// Detect inspects the query's shape and computes an instant answer if
// one applies. A nil return means no answerer matched.
func (s *Service) Detect(query string) *types.InstantAnswer {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	if m := hashShape.FindStringSubmatch(query); m != nil {
		if digest, err := HashAnswer(m[1], m[2]); err == nil {
			return &types.InstantAnswer{
				Type: "hash", Query: query, Result: digest,
				Data: map[string]string{"algorithm": strings.ToLower(m[1])},
			}
		}
	}

	if m := defineShape.FindStringSubmatch(query); m != nil {
		if def, err := s.Dict.Lookup(m[1]); err == nil {
			return &types.InstantAnswer{
				Type: "define", Query: query, Result: def.Definition, Data: def,
			}
		}
		return nil
	}

	if m := timeShape.FindStringSubmatch(query); m != nil {
		if t, zone, err := WorldTime(m[1], time.Now()); err == nil {
			return &types.InstantAnswer{
				Type: "time", Query: query,
				Result: t.Format("15:04 Mon, 02 Jan 2006"),
				Data:   map[string]string{"zone": zone},
			}
		}
		return nil
	}

	// Currency before generic units: both shapes match "10 usd to eur".
	if m := currencyShape.FindStringSubmatch(query); m != nil {
		amount, _ := strconv.ParseFloat(m[1], 64)
		if v, err := s.Rates.Convert(amount, m[2], m[3]); err == nil {
			return &types.InstantAnswer{
				Type: "currency", Query: query,
				Result: fmt.Sprintf("%s %s", FormatNumber(v), strings.ToUpper(m[3])),
			}
		}
	}

	if m := convertShape.FindStringSubmatch(query); m != nil {
		amount, _ := strconv.ParseFloat(m[1], 64)
		if v, err := ConvertUnits(amount, m[2], m[3]); err == nil {
			return &types.InstantAnswer{
				Type: "convert", Query: query,
				Result: fmt.Sprintf("%s %s", FormatNumber(v), strings.ToLower(m[3])),
			}
		}
		return nil
	}

	if calcShape.MatchString(query) && strings.ContainsAny(query, "+-*/^%×÷−") {
		if v, err := Calculate(query); err == nil {
			return &types.InstantAnswer{
				Type: "calculation", Query: query, Result: FormatNumber(v),
			}
		}
		return nil
	}

	return nil
}
