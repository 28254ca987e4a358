package expert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/intent"
	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
	"github.com/NhanTrannn/TravelGO-sub000/store"
)

const generalSystemPrompt = `You are a Vietnamese travel assistant. Answer briefly
and concretely, grounded ONLY in the provided records. Answer in Vietnamese.
If the records name a province, state it explicitly.`

// GeneralInfoExpert answers open questions: entity lookups (cross-province
// for "where is X" queries), broad top-rated search, short grounded LLM
// answers with a static tips fallback.
type GeneralInfoExpert struct {
	store   store.DocumentStore
	llm     llm.Client
	aliases *store.Aliases
}

// NewGeneralInfoExpert builds the expert. The LLM client may be nil.
func NewGeneralInfoExpert(docs store.DocumentStore, client llm.Client, aliases *store.Aliases) *GeneralInfoExpert {
	if aliases == nil {
		aliases = store.NewAliases()
	}
	return &GeneralInfoExpert{store: docs, llm: client, aliases: aliases}
}

func (e *GeneralInfoExpert) Type() planner.TaskType { return planner.TaskGeneralInfo }

func (e *GeneralInfoExpert) Execute(ctx context.Context, query string, params map[string]any, c *convo.Context) (*Result, error) {
	original := paramString(params, "original_query")
	if original == "" {
		original = query
	}
	location := paramString(params, "location")
	if location == "" && c != nil {
		location = c.Destination
	}

	var provinceID string
	if info, ok := e.aliases.Normalize(location); ok {
		provinceID = info.ID
	}

	// "X ở đâu?" searches without a province filter so entities outside
	// the current destination are still found.
	if subject, ok := intent.WhereIsSubject(original); ok {
		return e.whereIs(ctx, subject, original)
	}

	records := e.lookup(ctx, original, provinceID)
	answer := e.compose(ctx, original, records)
	if answer == "" {
		answer = e.tipsFallback(ctx, provinceID, location)
	}

	return &Result{
		Data:     records,
		Summary:  answer,
		Metadata: map[string]any{"province_id": provinceID},
	}, nil
}

func (e *GeneralInfoExpert) whereIs(ctx context.Context, subject, original string) (*Result, error) {
	spot, err := e.store.FindSpotByName(ctx, subject, "")
	if err != nil {
		return nil, err
	}
	if spot == nil {
		return &Result{
			Summary: fmt.Sprintf("Mình chưa tìm thấy \"%s\" trong dữ liệu. Bạn kiểm tra lại tên giúp mình nhé.", subject),
		}, nil
	}

	provinceName := spot.ProvinceID
	if info, ok := store.ProvinceByID(spot.ProvinceID); ok {
		provinceName = info.Name
	}
	record := toRecord(*spot)

	answer := fmt.Sprintf("**%s** nằm ở **%s**.", spot.Name, provinceName)
	if spot.Description != "" {
		answer += " " + spot.Description
	}
	if composed := e.compose(ctx, original, []map[string]any{record}); composed != "" {
		answer = composed
	}
	return &Result{
		Data:     []map[string]any{record},
		Summary:  answer,
		Metadata: map[string]any{"cross_province": true, "province_id": spot.ProvinceID},
	}, nil
}

// lookup issues precise name queries for extracted entities, else a broad
// top-rated search in the current province.
func (e *GeneralInfoExpert) lookup(ctx context.Context, original, provinceID string) []map[string]any {
	for _, entity := range extractEntities(original) {
		spot, err := e.store.FindSpotByName(ctx, entity, provinceID)
		if err != nil {
			slog.Warn("expert: entity lookup failed", "entity", entity, "error", err)
			continue
		}
		if spot != nil {
			return []map[string]any{toRecord(*spot)}
		}
	}

	spots, err := e.store.FindSpots(ctx, store.SpotQuery{ProvinceID: provinceID, Limit: 5})
	if err != nil {
		slog.Warn("expert: broad search failed", "error", err)
		return nil
	}
	return toRecords(spots)
}

func (e *GeneralInfoExpert) compose(ctx context.Context, question string, records []map[string]any) string {
	if e.llm == nil || len(records) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Records:\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "- %v (%v): %v\n", r["name"], r["province_id"], r["description"])
	}
	sb.WriteString("\nQuestion: " + question)

	answer, err := e.llm.Complete(ctx, generalSystemPrompt+"\n\n"+sb.String(), nil)
	if err != nil {
		slog.Warn("expert: general info LLM failed", "error", err)
		return ""
	}
	return strings.TrimSpace(answer)
}

func (e *GeneralInfoExpert) tipsFallback(ctx context.Context, provinceID, location string) string {
	if provinceID != "" {
		if province, err := e.store.GetProvince(ctx, provinceID); err == nil && province != nil && province.TravelTips != "" {
			return province.TravelTips
		}
	}
	if location != "" {
		return fmt.Sprintf("Bạn muốn biết thêm gì về %s? Mình có thể gợi ý địa điểm, khách sạn hoặc quán ăn.", location)
	}
	return "Bạn muốn đi đâu? Cho mình biết điểm đến để gợi ý chi tiết hơn nhé."
}

// extractEntities pulls capitalized multi-word names from the query as
// candidate spot or hotel names.
func extractEntities(query string) []string {
	words := strings.Fields(query)
	var entities []string
	var current []string
	flush := func() {
		if len(current) >= 2 {
			entities = append(entities, strings.Join(current, " "))
		}
		current = nil
	}
	for _, w := range words {
		trimmed := strings.Trim(w, "?!.,:;\"'")
		if trimmed == "" {
			flush()
			continue
		}
		runes := []rune(trimmed)
		if isUpper(runes[0]) {
			current = append(current, trimmed)
		} else {
			flush()
		}
	}
	flush()
	return entities
}

func isUpper(r rune) bool {
	return strings.ToUpper(string(r)) == string(r) && strings.ToLower(string(r)) != string(r)
}
