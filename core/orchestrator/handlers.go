package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NhanTrannn/TravelGO-sub000/core/aggregate"
	"github.com/NhanTrannn/TravelGO-sub000/core/builder"
	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/expert"
	"github.com/NhanTrannn/TravelGO-sub000/core/intent"
	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
	"github.com/NhanTrannn/TravelGO-sub000/core/workflow"
	"github.com/NhanTrannn/TravelGO-sub000/store"
	"github.com/NhanTrannn/TravelGO-sub000/weather"
)

// handleSpecial dispatches the intents that bypass the planner. Nil means
// the turn continues into the planned pipeline.
func (o *Orchestrator) handleSpecial(ctx context.Context, rec *intent.Record, c *convo.Context, utterance string) *chunk.Chunk {
	switch rec.PrimaryIntent {
	case intent.Greeting:
		return o.greeting(c)
	case intent.Thanks:
		return chunk.Complete("Không có gì đâu! Mình luôn sẵn sàng giúp bạn lên kế hoạch cho chuyến đi. 😊", chunk.UIThanks, nil)
	case intent.Farewell:
		return chunk.Complete("Tạm biệt bạn! Chúc bạn có chuyến đi thật vui. Hẹn gặp lại! 👋", chunk.UIFarewell, nil)
	case intent.Chitchat:
		return o.chitchat(ctx, utterance)
	case intent.PlanTrip:
		return o.planTrip(ctx, rec, c)
	case intent.ShowItinerary:
		return o.showItinerary(c)
	case intent.CalculateCost:
		return o.calculateCost(ctx, rec, c)
	case intent.BookHotel:
		return o.bookHotel(ctx, rec, c, utterance)
	case intent.GetDistance:
		return o.distance(ctx, c, utterance)
	case intent.GetDirections:
		return o.directions(ctx, c, utterance)
	case intent.GetWeatherForecast:
		return o.weatherForecast(ctx, rec, c)
	case intent.GetLocationTips:
		return o.locationTips(ctx, rec, c)
	case intent.GetPlaceDetails, intent.GetDetail, intent.GetLocationDetails:
		return o.placeDetails(c, utterance)
	case intent.UpdatePeopleCount:
		return o.updatePeopleCount(rec, c)
	case intent.MoreSpots:
		return o.moreSpots(ctx, c)
	case intent.MoreHotels:
		return o.moreHotels(ctx, c)
	case intent.MoreFood:
		return o.moreFood(ctx, c)
	}
	return nil
}

func (o *Orchestrator) greeting(c *convo.Context) *chunk.Chunk {
	reply := "Xin chào! Mình là trợ lý du lịch TravelGO. 🌴 Bạn muốn đi đâu, mình gợi ý địa điểm, khách sạn và lên lịch trình cho bạn nhé!"
	if c.Destination != "" {
		reply = fmt.Sprintf("Xin chào! Mình đang giữ kế hoạch %s của bạn đây. Bạn muốn tiếp tục chứ? 🌴", c.Destination)
	}
	return chunk.Complete(reply, chunk.UIGreeting, nil)
}

func (o *Orchestrator) chitchat(ctx context.Context, utterance string) *chunk.Chunk {
	if o.llm != nil {
		reply, err := o.llm.Complete(ctx,
			"Bạn là trợ lý du lịch Việt Nam thân thiện. Trả lời ngắn gọn (tối đa 2 câu) và khéo léo gợi chuyện về du lịch.\nNgười dùng: "+utterance,
			&llm.ChatOptions{MaxTokens: 150})
		if err == nil && reply != "" {
			return chunk.Complete(reply, chunk.UIChitchat, nil)
		}
	}
	return chunk.Complete("Hihi, chủ đề đó mình không rành lắm. 😄 Nhưng nếu bạn muốn đi chơi đâu đó thì mình giúp được ngay!", chunk.UIChitchat, nil)
}

// planTrip enters the itinerary builder, or asks for the destination when
// the frame is incomplete.
func (o *Orchestrator) planTrip(ctx context.Context, rec *intent.Record, c *convo.Context) *chunk.Chunk {
	if rec.Location == "" {
		return chunk.Complete(
			"Bạn muốn đi du lịch ở đâu? Cho mình biết điểm đến để lên lịch trình nhé!",
			chunk.UIOptions,
			map[string]any{"actions": []map[string]any{
				{"label": "Đà Nẵng", "action": "plan_trip"},
				{"label": "Đà Lạt", "action": "plan_trip"},
				{"label": "Phú Quốc", "action": "plan_trip"},
			}},
		)
	}
	out, err := o.builder.Start(ctx, c, builder.Entry{
		Location: rec.Location,
		Days:     rec.Duration,
		Budget:   rec.Budget,
		People:   rec.PeopleCount,
	})
	if err != nil {
		slog.Error("orchestrator: builder start failed",
			"session_id", c.SessionID, "error", err)
		return chunk.Error(apologyReply)
	}
	return out
}

func (o *Orchestrator) showItinerary(c *convo.Context) *chunk.Chunk {
	it := c.LastItinerary
	if it == nil {
		return chunk.Complete(
			"Bạn chưa có lịch trình nào. Muốn mình lên lịch trình cho chuyến đi sắp tới không?",
			chunk.UIOptions,
			map[string]any{"actions": []map[string]any{
				{"label": "Lên lịch trình", "action": "plan_trip"},
				{"label": "Tìm địa điểm", "action": "find_spot"},
			}},
		)
	}
	return chunk.Complete(renderStoredItinerary(it), chunk.UIItineraryDisplay, map[string]any{
		"itinerary": storedItineraryRecord(it),
	})
}

// calculateCost prices the current trip. With no explicit hotel selection
// but recent hotel results, one is auto-selected under the budget level.
func (o *Orchestrator) calculateCost(ctx context.Context, rec *intent.Record, c *convo.Context) *chunk.Chunk {
	if c.SelectedHotel == nil && len(c.LastHotels) > 0 {
		o.autoSelectHotel(c)
	}

	params := map[string]any{}
	if rec.Duration > 0 {
		params["duration"] = rec.Duration
	}
	if rec.PeopleCount > 0 {
		params["people_count"] = rec.PeopleCount
	}
	if rec.BudgetLevel != "" {
		params["budget_level"] = rec.BudgetLevel
	}
	if c.SelectedHotel == nil && len(c.LastHotels) > 0 {
		params["hotel_data"] = c.LastHotels
	}

	task := &planner.Task{ID: "cost_1", Type: planner.TaskCalculateCost, Parameters: params}
	result := o.dispatcher.Execute(ctx, task, nil, c)
	section := aggregate.FormatStage(aggregate.StageCost, []*expert.Result{result})
	if section == nil {
		return chunk.Complete(apologyReply, chunk.UIText, nil)
	}
	workflow.CostEstimated(c)
	c.MarkAnswered(intent.CalculateCost)
	return chunk.Complete(section.Reply, section.UIType, section.UIData)
}

// autoSelectHotel picks from the recent hotel results: the best-rated one
// inside the budget level's price range, else the first.
func (o *Orchestrator) autoSelectHotel(c *convo.Context) {
	minPrice, maxPrice, hasRange := expert.LevelPriceRange(c.BudgetLevel)
	var pick map[string]any
	if hasRange {
		for _, h := range c.LastHotels {
			price := recordPrice(h)
			if price >= minPrice && price <= maxPrice {
				pick = h
				break
			}
		}
	}
	if pick == nil {
		pick = c.LastHotels[0]
	}
	c.SelectedHotel = pick
	c.SelectedHotelPrice = recordPrice(pick)
	slog.Info("orchestrator: hotel auto-selected for costing",
		"session_id", c.SessionID,
		"hotel", recordName(pick),
		"price", c.SelectedHotelPrice)
}

// bookHotel commits a hotel selection resolved from the booking phrase or
// the recent results.
func (o *Orchestrator) bookHotel(ctx context.Context, rec *intent.Record, c *convo.Context, utterance string) *chunk.Chunk {
	var hotel map[string]any
	if rec.SelectedHotelName != "" {
		hotel = matchHotelByName(c.LastHotels, rec.SelectedHotelName)
	}
	if hotel == nil {
		if resolved, ok := convo.NewMemory(c).ResolveHotel(utterance); ok {
			hotel = resolved
		}
	}
	if hotel == nil && rec.SelectedHotelName != "" {
		if found, err := o.docs.FindHotels(ctx, store.HotelQuery{Keywords: []string{rec.SelectedHotelName}, Limit: 1}); err == nil && len(found) > 0 {
			hotel = map[string]any{
				"id":     found[0].ID,
				"name":   found[0].Name,
				"price":  found[0].Price,
				"rating": found[0].Rating,
				"lat":    found[0].Lat,
				"lng":    found[0].Lng,
			}
		}
	}
	if hotel == nil && rec.SelectedHotelName != "" {
		// The user named a hotel we have no record for; honor the choice.
		hotel = map[string]any{"name": rec.SelectedHotelName}
	}
	if hotel == nil {
		return chunk.Complete(
			"Bạn muốn đặt khách sạn nào? Chọn một trong các khách sạn mình đã gợi ý, hoặc cho mình biết tên nhé.",
			chunk.UIBookingPrompt,
			map[string]any{"hotels": aggregate.CleanHotels(c.LastHotels)},
		)
	}

	c.SelectedHotel = hotel
	c.SelectedHotelPrice = recordPrice(hotel)
	workflow.HotelSelected(c)

	name := recordName(hotel)
	reply := fmt.Sprintf("✅ Đã ghi nhận lựa chọn **%s**. Bạn muốn mình tính chi phí chuyến đi luôn không?", name)
	if c.SelectedHotelPrice > 0 {
		reply = fmt.Sprintf("✅ Đã ghi nhận lựa chọn **%s** (%s/đêm). Bạn muốn mình tính chi phí chuyến đi luôn không?",
			name, expert.FormatVND(c.SelectedHotelPrice))
	}
	return chunk.Complete(reply, chunk.UIBooking, map[string]any{
		"selected_hotel": name,
		"hotel":          hotel,
	})
}

// distance answers "how far" questions between a referenced spot and the
// selected hotel or the province center.
func (o *Orchestrator) distance(ctx context.Context, c *convo.Context, utterance string) *chunk.Chunk {
	spot, ok := convo.NewMemory(c).ResolveSpot(utterance)
	if !ok {
		spot = o.lookupSpotRecord(ctx, utterance, c.Destination)
	}
	if spot == nil {
		return chunk.Complete("Mình chưa xác định được địa điểm bạn muốn đo khoảng cách. Bạn nói rõ tên địa điểm giúp mình nhé.", chunk.UIText, nil)
	}
	lat, lng, ok := recordCoords(spot)
	if !ok {
		return chunk.Complete(fmt.Sprintf("Mình chưa có toạ độ của %s nên không tính được khoảng cách chính xác.", recordName(spot)), chunk.UIText, nil)
	}

	fromName, fromLat, fromLng, ok := o.referencePoint(c)
	if !ok {
		return chunk.Complete("Bạn đang ở khu vực nào? Cho mình điểm xuất phát để tính khoảng cách nhé.", chunk.UIText, nil)
	}

	km := store.HaversineKm(fromLat, fromLng, lat, lng)
	return chunk.Complete(
		fmt.Sprintf("📍 **%s** cách %s khoảng **%.1f km**.", recordName(spot), fromName, km),
		chunk.UIDistanceInfo,
		map[string]any{"from": fromName, "to": recordName(spot), "distance_km": km},
	)
}

func (o *Orchestrator) directions(ctx context.Context, c *convo.Context, utterance string) *chunk.Chunk {
	spot, ok := convo.NewMemory(c).ResolveSpot(utterance)
	if !ok {
		spot = o.lookupSpotRecord(ctx, utterance, c.Destination)
	}
	if spot == nil {
		return chunk.Complete("Bạn muốn đường đi tới đâu? Cho mình tên địa điểm cụ thể nhé.", chunk.UIText, nil)
	}

	name := recordName(spot)
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧭 **Đường đi tới %s:**\n", name)
	if lat, lng, ok := recordCoords(spot); ok {
		if fromName, fromLat, fromLng, hasFrom := o.referencePoint(c); hasFrom {
			km := store.HaversineKm(fromLat, fromLng, lat, lng)
			fmt.Fprintf(&sb, "- Từ %s khoảng %.1f km.\n", fromName, km)
			if km < 3 {
				sb.WriteString("- Đi bộ hoặc xe đạp là thoải mái nhất.\n")
			} else if km < 15 {
				sb.WriteString("- Nên đi xe máy hoặc taxi, khoảng 15–30 phút.\n")
			} else {
				sb.WriteString("- Quãng đường khá xa, bạn nên thuê ô tô hoặc đặt tour.\n")
			}
		}
		fmt.Fprintf(&sb, "- Tìm trên bản đồ: %.5f, %.5f.", lat, lng)
	} else {
		sb.WriteString("- Bạn hỏi lễ tân khách sạn hoặc tra Google Maps theo tên địa điểm nhé.")
	}
	return chunk.Complete(sb.String(), chunk.UIDistanceInfo, map[string]any{"to": name})
}

func (o *Orchestrator) weatherForecast(ctx context.Context, rec *intent.Record, c *convo.Context) *chunk.Chunk {
	location := rec.Location
	if location == "" {
		return chunk.Complete("Bạn muốn xem thời tiết ở đâu?", chunk.UIText, nil)
	}
	if o.weather == nil {
		return chunk.Complete("Hiện mình chưa kết nối được dịch vụ thời tiết. Bạn thử lại sau nhé.", chunk.UIText, nil)
	}

	startDate := c.StartDate
	if startDate == "" {
		startDate = time.Now().Format("2006-01-02")
	}
	days := max(rec.Duration, 3)
	forecast, err := o.weather.GetWeather(ctx, location, startDate, days)
	if err != nil {
		if best, berr := o.weather.GetBestTime(ctx, location); berr == nil && best.Message != "" {
			return chunk.Complete("🌤️ "+best.Message, chunk.UIText, nil)
		}
		slog.Warn("orchestrator: weather fetch failed", "location", location, "error", err)
		return chunk.Complete("Mình chưa lấy được dự báo thời tiết lúc này. Bạn thử lại sau nhé.", chunk.UIText, nil)
	}
	return chunk.Complete(weather.BuildWeatherResponse(forecast), chunk.UIText, map[string]any{
		"location": location,
		"forecast": forecast,
	})
}

func (o *Orchestrator) locationTips(ctx context.Context, rec *intent.Record, c *convo.Context) *chunk.Chunk {
	location := rec.Location
	if location == "" {
		return chunk.Complete("Bạn cần lưu ý cho chuyến đi ở đâu? Cho mình biết điểm đến nhé.", chunk.UIText, nil)
	}

	var provinceID string
	if info, ok := o.aliases.Normalize(location); ok {
		provinceID = info.ID
	}
	if provinceID != "" {
		if p, err := o.docs.GetProvince(ctx, provinceID); err == nil && p != nil && p.TravelTips != "" {
			c.MarkAnswered(intent.GetLocationTips)
			return chunk.Complete(
				fmt.Sprintf("💡 **Kinh nghiệm du lịch %s:**\n%s", location, p.TravelTips),
				chunk.UITips,
				map[string]any{"tips": p.TravelTips},
			)
		}
	}
	if o.llm != nil {
		reply, err := o.llm.Complete(ctx,
			fmt.Sprintf("Liệt kê 4-5 lưu ý ngắn gọn (tiếng Việt, gạch đầu dòng) cho khách du lịch tới %s.", location),
			&llm.ChatOptions{MaxTokens: 400})
		if err == nil && reply != "" {
			return chunk.Complete("💡 "+reply, chunk.UITips, nil)
		}
	}
	return chunk.Complete(
		fmt.Sprintf("💡 Tới %s bạn nhớ xem dự báo thời tiết, đặt phòng sớm vào mùa cao điểm và mang theo kem chống nắng nhé!", location),
		chunk.UITips, nil)
}

// placeDetails answers from the recent caches; unknown subjects fall through
// to the general-info expert (nil return resumes the planned path).
func (o *Orchestrator) placeDetails(c *convo.Context, utterance string) *chunk.Chunk {
	mem := convo.NewMemory(c)
	if spot, ok := mem.ResolveSpot(utterance); ok {
		return detailChunk(spot, chunk.UISpotDetail)
	}
	if hotel, ok := mem.ResolveHotel(utterance); ok {
		cleaned := aggregate.CleanHotels([]map[string]any{hotel})
		return detailChunk(cleaned[0], chunk.UIHotelDetail)
	}
	if food, ok := mem.ResolveFood(utterance); ok {
		return detailChunk(food, chunk.UIFoodDetail)
	}
	return nil
}

func detailChunk(record map[string]any, ui chunk.UIType) *chunk.Chunk {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**\n", recordName(record))
	if desc := stringField(record, "description"); desc != "" {
		sb.WriteString(desc + "\n")
	}
	if rd := stringField(record, "rating_display"); rd != "" {
		sb.WriteString("Đánh giá: " + rd + "\n")
	}
	if pd := stringField(record, "price_display"); pd != "" {
		sb.WriteString("Giá: " + pd + "\n")
	}
	return chunk.Complete(sb.String(), ui, map[string]any{"record": record})
}

func (o *Orchestrator) updatePeopleCount(rec *intent.Record, c *convo.Context) *chunk.Chunk {
	if rec.PeopleCount <= 0 {
		return chunk.Complete("Nhóm của bạn gồm mấy người? Cho mình con số để cập nhật nhé.", chunk.UIText, nil)
	}
	c.PeopleCount = rec.PeopleCount
	reply := fmt.Sprintf("✅ Đã cập nhật số người thành **%d**.", rec.PeopleCount)
	if c.SelectedHotel != nil || c.LastItinerary != nil {
		reply += " Bạn muốn mình tính lại chi phí không?"
	}
	return chunk.Complete(reply, chunk.UIText, map[string]any{"people_count": rec.PeopleCount})
}

// moreSpots pages the spot inventory past what previous turns already
// showed. Exhausted inventory gets a text reply with alternative actions.
func (o *Orchestrator) moreSpots(ctx context.Context, c *convo.Context) *chunk.Chunk {
	var provinceID string
	if info, ok := o.aliases.Normalize(c.Destination); ok {
		provinceID = info.ID
	}
	spots, err := o.docs.FindSpots(ctx, store.SpotQuery{
		ProvinceID: provinceID,
		ExcludeIDs: recordIDs(c.LastSpots),
		Limit:      10,
	})
	if err != nil {
		slog.Warn("orchestrator: more-spots fetch failed", "error", err)
		return chunk.Complete(apologyReply, chunk.UIText, nil)
	}
	if len(spots) == 0 {
		return chunk.Complete(
			fmt.Sprintf("Mình đã gợi ý hết các địa điểm nổi bật ở %s rồi. Bạn muốn xem gì tiếp?", c.Destination),
			chunk.UIOptions,
			map[string]any{"actions": []map[string]any{
				{"label": "Tìm quán ăn", "action": "find_food"},
				{"label": "Tìm khách sạn", "action": "find_hotel"},
			}},
		)
	}

	records := spotRecords(spots)
	c.CacheSpots(append(c.LastSpots, records...))
	section := aggregate.FormatStage(aggregate.StageSpots, []*expert.Result{{Success: true, Data: records}})
	return chunk.Complete(section.Reply, section.UIType, section.UIData)
}

func (o *Orchestrator) moreHotels(ctx context.Context, c *convo.Context) *chunk.Chunk {
	var provinceID string
	if info, ok := o.aliases.Normalize(c.Destination); ok {
		provinceID = info.ID
	}
	hotels, err := o.docs.FindHotels(ctx, store.HotelQuery{ProvinceID: provinceID, Limit: 20})
	if err != nil {
		slog.Warn("orchestrator: more-hotels fetch failed", "error", err)
		return chunk.Complete(apologyReply, chunk.UIText, nil)
	}

	shown := make(map[string]bool)
	for _, id := range recordIDs(c.LastHotels) {
		shown[id] = true
	}
	var fresh []map[string]any
	for _, h := range hotels {
		if shown[h.ID] {
			continue
		}
		fresh = append(fresh, map[string]any{
			"id": h.ID, "name": h.Name, "price": h.Price,
			"rating": h.Rating, "image": h.Image, "address": h.Address,
			"description": h.Description,
		})
		if len(fresh) == 8 {
			break
		}
	}
	if len(fresh) == 0 {
		return chunk.Complete(
			fmt.Sprintf("Mình đã gợi ý hết khách sạn phù hợp ở %s rồi. Bạn muốn đổi mức giá hay xem địa điểm?", c.Destination),
			chunk.UIOptions,
			map[string]any{"actions": []map[string]any{
				{"label": "Đổi mức giá", "action": "find_hotel"},
				{"label": "Tìm địa điểm", "action": "find_spot"},
			}},
		)
	}

	c.CacheHotels(append(c.LastHotels, fresh...))
	section := aggregate.FormatStage(aggregate.StageHotels, []*expert.Result{{Success: true, Data: fresh}})
	return chunk.Complete(section.Reply, section.UIType, section.UIData)
}

func (o *Orchestrator) moreFood(ctx context.Context, c *convo.Context) *chunk.Chunk {
	var provinceID string
	if info, ok := o.aliases.Normalize(c.Destination); ok {
		provinceID = info.ID
	}
	foods, err := o.docs.FindFoods(ctx, store.FoodQuery{ProvinceID: provinceID, Limit: 15})
	if err != nil {
		slog.Warn("orchestrator: more-food fetch failed", "error", err)
		return chunk.Complete(apologyReply, chunk.UIText, nil)
	}

	shown := make(map[string]bool)
	for _, id := range recordIDs(c.LastFoods) {
		shown[id] = true
	}
	var fresh []map[string]any
	for _, f := range foods {
		if shown[f.ID] {
			continue
		}
		fresh = append(fresh, map[string]any{
			"id": f.ID, "name": f.Name, "rating": f.Rating,
			"image": f.Image, "description": f.Description,
		})
		if len(fresh) == 5 {
			break
		}
	}
	if len(fresh) == 0 {
		return chunk.Complete(
			fmt.Sprintf("Mình đã gợi ý hết quán ăn ngon ở %s rồi. Bạn muốn xem gì tiếp?", c.Destination),
			chunk.UIOptions,
			map[string]any{"actions": []map[string]any{
				{"label": "Tìm địa điểm", "action": "find_spot"},
				{"label": "Xem lịch trình", "action": "show_itinerary"},
			}},
		)
	}

	c.CacheFoods(append(c.LastFoods, fresh...))
	section := aggregate.FormatStage(aggregate.StageFood, []*expert.Result{{Success: true, Data: fresh}})
	return chunk.Complete(section.Reply, section.UIType, section.UIData)
}

// referencePoint is the "from" anchor for distance answers: the selected
// hotel when it has coordinates, else the destination province center.
func (o *Orchestrator) referencePoint(c *convo.Context) (name string, lat, lng float64, ok bool) {
	if c.SelectedHotel != nil {
		if hLat, hLng, has := recordCoords(c.SelectedHotel); has {
			return recordName(c.SelectedHotel), hLat, hLng, true
		}
	}
	if info, found := o.aliases.Normalize(c.Destination); found {
		if p, has := store.ProvinceByID(info.ID); has && (p.Lat != 0 || p.Lng != 0) {
			return p.Name, p.Lat, p.Lng, true
		}
	}
	return "", 0, 0, false
}

func (o *Orchestrator) lookupSpotRecord(ctx context.Context, utterance, destination string) map[string]any {
	var provinceID string
	if info, ok := o.aliases.Normalize(destination); ok {
		provinceID = info.ID
	}
	name := utterance
	if subject, ok := intent.WhereIsSubject(utterance); ok {
		name = subject
	}
	spot, err := o.docs.FindSpotByName(ctx, name, provinceID)
	if err != nil || spot == nil {
		return nil
	}
	return map[string]any{
		"id": spot.ID, "name": spot.Name, "category": spot.Category,
		"rating": spot.Rating, "lat": spot.Lat, "lng": spot.Lng,
		"description": spot.Description,
	}
}

func renderStoredItinerary(it *convo.Itinerary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓️ **LỊCH TRÌNH %d NGÀY TẠI %s**\n", it.Duration, strings.ToUpper(it.Location))
	if it.StartDate != "" {
		fmt.Fprintf(&sb, "Khởi hành: %s\n", it.StartDate)
	}
	for _, day := range it.Days {
		fmt.Fprintf(&sb, "\n**Ngày %d:**", day.Day)
		if day.Title != "" {
			sb.WriteString(" " + day.Title)
		}
		sb.WriteString("\n")
		if len(day.Spots) == 0 {
			sb.WriteString("- (ngày tự do)\n")
			continue
		}
		for _, spot := range day.Spots {
			name := recordName(spot)
			if name == "" {
				name = stringField(spot, "activity")
			}
			if t := stringField(spot, "time"); t != "" {
				fmt.Fprintf(&sb, "- %s: %s\n", t, name)
			} else {
				fmt.Fprintf(&sb, "- %s\n", name)
			}
		}
	}
	if it.BudgetWarning != "" {
		sb.WriteString("\n⚠️ " + it.BudgetWarning)
	}
	return sb.String()
}

func storedItineraryRecord(it *convo.Itinerary) map[string]any {
	days := make([]map[string]any, 0, len(it.Days))
	for _, day := range it.Days {
		days = append(days, map[string]any{
			"day":        day.Day,
			"title":      day.Title,
			"activities": day.Spots,
		})
	}
	record := map[string]any{
		"type":     "itinerary",
		"location": it.Location,
		"duration": it.Duration,
		"days":     days,
	}
	if it.StartDate != "" {
		record["start_date"] = it.StartDate
	}
	return record
}

func matchHotelByName(hotels []map[string]any, name string) map[string]any {
	lower := strings.ToLower(name)
	for _, h := range hotels {
		hn := strings.ToLower(recordName(h))
		if hn == "" {
			continue
		}
		if strings.Contains(hn, lower) || strings.Contains(lower, hn) {
			return h
		}
	}
	for _, h := range hotels {
		if convo.NameSimilarity(lower, strings.ToLower(recordName(h))) >= 0.6 {
			return h
		}
	}
	return nil
}

func recordName(record map[string]any) string {
	if name, ok := record["name"].(string); ok {
		return name
	}
	return ""
}

func recordPrice(record map[string]any) int64 {
	switch v := record["price"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func recordCoords(record map[string]any) (lat, lng float64, ok bool) {
	lat, latOK := floatValue(record["lat"])
	lng, lngOK := floatValue(record["lng"])
	if !latOK || !lngOK || (lat == 0 && lng == 0) {
		return 0, 0, false
	}
	return lat, lng, true
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func recordIDs(records []map[string]any) []string {
	var ids []string
	for _, r := range records {
		if id, ok := r["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func spotRecords(spots []store.Spot) []map[string]any {
	out := make([]map[string]any, 0, len(spots))
	for _, s := range spots {
		out = append(out, map[string]any{
			"id": s.ID, "name": s.Name, "category": s.Category,
			"rating": s.Rating, "image": s.Image,
			"lat": s.Lat, "lng": s.Lng, "description": s.Description,
		})
	}
	return out
}
