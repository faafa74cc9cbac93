package classifier

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shoptalk-core/server/internal/chat/model"
	errx "github.com/shoptalk-core/server/internal/core/error"
	logx "github.com/shoptalk-core/server/pkg/logger"
)

// The classifier models emit a delimiter-tuple format rather than JSON, which
// small models reproduce far more reliably:
//
//	(intent<||>order_status<||>0.92)##
//	(slot<||>brand<||>Nike<||>0.88)##
//	(topic_switch<||>1)##
//	<|COMPLETE|>
const (
	recDelim = "##"
	tupDelim = "<||>"
	endDelim = "<|COMPLETE|>"
)

// basic safety limits to avoid pathological model output
const (
	maxContentLen = 64 * 1024
	maxRecords    = 100
	maxTupleLen   = 4 * 1024
	maxErrSnippet = 200
)

type rawTuple struct {
	Type  string
	Parts []string
}

func parseRawTuple(s string) (*rawTuple, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	if len(s) > maxTupleLen {
		return nil, fmt.Errorf("tuple too large")
	}

	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid tuple parens")
	}
	// remove the outermost parens only
	inner := s[1 : len(s)-1]
	parts := strings.SplitN(inner, tupDelim, 4)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tuple parts")
	}
	return &rawTuple{Type: strings.TrimSpace(parts[0]), Parts: parts}, nil
}

func parseConfidence(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("confidence parse: %w", err)
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("confidence out of range")
	}
	return v, nil
}

func validUTF8(s string) bool {
	return utf8.ValidString(s)
}

// ParseClassification parses delimiter-tuple classifier output into a
// Classification. Malformed records are skipped and recorded in Metadata under
// parsing_errors; only a fully unusable payload (no valid intent tuple at all)
// is an error.
func ParseClassification(content string) (cls *model.Classification, err error) {
	// panic safety: the payload is model-generated text
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "classifier_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("classifier parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			cls = nil
		}
	}()

	truncated := false
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "classifier_parser").
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
		truncated = true
	}
	if idx := strings.Index(content, endDelim); idx >= 0 {
		content = content[:idx]
	}

	cls = &model.Classification{
		Candidates: []model.IntentScore{},
		Slots:      map[string]string{},
		Metadata:   map[string]any{},
	}

	addErr := func(msg string) {
		v, _ := cls.Metadata["parsing_errors"].([]string)
		v = append(v, msg)
		cls.Metadata["parsing_errors"] = v
	}
	if truncated {
		cls.Metadata["truncated"] = true
	}

	seen := map[model.Intent]bool{}
	processed := 0
	for _, rec := range strings.Split(content, recDelim) {
		if processed >= maxRecords {
			cls.Metadata["records_capped"] = true
			break
		}
		rec = strings.TrimSpace(rec)
		if rec == "" || rec == endDelim {
			continue
		}
		processed++

		rt, rerr := parseRawTuple(rec)
		if rerr != nil {
			addErr(fmt.Sprintf("bad_record: %s", safeSnippet(rec)))
			continue
		}

		switch rt.Type {
		case "intent":
			if len(rt.Parts) < 3 {
				addErr("intent: insufficient parts")
				continue
			}
			it, perr := model.ParseIntent(strings.TrimSpace(rt.Parts[1]))
			if perr != nil {
				addErr(fmt.Sprintf("intent: %s", safeSnippet(rt.Parts[1])))
				continue
			}
			conf, cerr := parseConfidence(rt.Parts[2])
			if cerr != nil {
				addErr("intent: invalid confidence")
				continue
			}
			if seen[it] {
				addErr("intent: duplicate " + it.String())
				continue
			}
			seen[it] = true
			cls.Candidates = append(cls.Candidates, model.IntentScore{Intent: it, Confidence: conf})

		case "slot":
			if len(rt.Parts) < 3 {
				addErr("slot: insufficient parts")
				continue
			}
			key := normalizeSlotKey(rt.Parts[1])
			val := strings.TrimSpace(rt.Parts[2])
			if key == "" || val == "" || !validUTF8(key) || !validUTF8(val) {
				addErr("slot: invalid key or value")
				continue
			}
			if len(rt.Parts) >= 4 {
				if _, cerr := parseConfidence(rt.Parts[3]); cerr != nil {
					addErr("slot: invalid confidence")
					continue
				}
			}
			// newest record wins the key
			cls.Slots[key] = val

		case "topic_switch":
			cls.TopicSwitch = strings.TrimSpace(rt.Parts[1]) == "1"

		default:
			addErr("unknown tuple type")
		}
	}

	if len(cls.Candidates) == 0 {
		return nil, errx.New(fmt.Errorf("no intent records in classifier output"), http.StatusBadGateway, errx.ClassifierErrorMessage)
	}
	return cls, nil
}

// --- helpers ---

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}

// normalizeSlotKey lowercases and snake_cases a slot key so "Max Price" and
// "max_price" land on the same focus filter.
func normalizeSlotKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
