package store

import (
	"sort"
	"strings"
)

// ProvinceInfo is a static province entry: canonical id, display name and
// center coordinates for geo fallbacks.
type ProvinceInfo struct {
	ID   string
	Name string
	Lat  float64
	Lng  float64
}

// provinceIndex holds the provinces the assistant knows offline. The
// document store's provinces_info collection is richer; this table keeps
// alias normalization and geo fallback working without it.
var provinceIndex = map[string]ProvinceInfo{
	"da_nang":        {ID: "da_nang", Name: "Đà Nẵng", Lat: 16.0544, Lng: 108.2022},
	"ha_noi":         {ID: "ha_noi", Name: "Hà Nội", Lat: 21.0285, Lng: 105.8542},
	"ho_chi_minh":    {ID: "ho_chi_minh", Name: "TP. Hồ Chí Minh", Lat: 10.8231, Lng: 106.6297},
	"kien_giang":     {ID: "kien_giang", Name: "Kiên Giang", Lat: 10.2270, Lng: 103.9637},
	"lam_dong":       {ID: "lam_dong", Name: "Lâm Đồng", Lat: 11.9404, Lng: 108.4583},
	"khanh_hoa":      {ID: "khanh_hoa", Name: "Khánh Hòa", Lat: 12.2388, Lng: 109.1967},
	"thua_thien_hue": {ID: "thua_thien_hue", Name: "Thừa Thiên Huế", Lat: 16.4637, Lng: 107.5909},
	"quang_nam":      {ID: "quang_nam", Name: "Quảng Nam", Lat: 15.8801, Lng: 108.3380},
	"quang_ninh":     {ID: "quang_ninh", Name: "Quảng Ninh", Lat: 20.9599, Lng: 107.0448},
	"lao_cai":        {ID: "lao_cai", Name: "Lào Cai", Lat: 22.3364, Lng: 103.8438},
	"binh_thuan":     {ID: "binh_thuan", Name: "Bình Thuận", Lat: 10.9289, Lng: 108.1021},
	"ba_ria_vung_tau": {ID: "ba_ria_vung_tau", Name: "Bà Rịa – Vũng Tàu", Lat: 10.3460, Lng: 107.0843},
	"ninh_binh":      {ID: "ninh_binh", Name: "Ninh Bình", Lat: 20.2506, Lng: 105.9745},
	"can_tho":        {ID: "can_tho", Name: "Cần Thơ", Lat: 10.0452, Lng: 105.7469},
	"quang_binh":     {ID: "quang_binh", Name: "Quảng Bình", Lat: 17.4689, Lng: 106.6223},
	"ha_giang":       {ID: "ha_giang", Name: "Hà Giang", Lat: 22.8233, Lng: 104.9836},
}

// defaultAliases maps user phrasing, with and without diacritics, to
// canonical province ids. Destination names inside a province (Phú Quốc,
// Hội An, Sa Pa) map to their parent province.
var defaultAliases = map[string]string{
	"đà nẵng":     "da_nang",
	"da nang":     "da_nang",
	"danang":      "da_nang",
	"hà nội":      "ha_noi",
	"ha noi":      "ha_noi",
	"hanoi":       "ha_noi",
	"hồ chí minh": "ho_chi_minh",
	"ho chi minh": "ho_chi_minh",
	"sài gòn":     "ho_chi_minh",
	"sai gon":     "ho_chi_minh",
	"saigon":      "ho_chi_minh",
	"tphcm":       "ho_chi_minh",
	"hcm":         "ho_chi_minh",
	"phú quốc":    "kien_giang",
	"phu quoc":    "kien_giang",
	"kiên giang":  "kien_giang",
	"kien giang":  "kien_giang",
	"đà lạt":      "lam_dong",
	"da lat":      "lam_dong",
	"dalat":       "lam_dong",
	"lâm đồng":    "lam_dong",
	"nha trang":   "khanh_hoa",
	"khánh hòa":   "khanh_hoa",
	"khanh hoa":   "khanh_hoa",
	"huế":         "thua_thien_hue",
	"hue":         "thua_thien_hue",
	"hội an":      "quang_nam",
	"hoi an":      "quang_nam",
	"quảng nam":   "quang_nam",
	"hạ long":     "quang_ninh",
	"ha long":     "quang_ninh",
	"quảng ninh":  "quang_ninh",
	"sa pa":       "lao_cai",
	"sapa":        "lao_cai",
	"lào cai":     "lao_cai",
	"mũi né":      "binh_thuan",
	"mui ne":      "binh_thuan",
	"phan thiết":  "binh_thuan",
	"vũng tàu":    "ba_ria_vung_tau",
	"vung tau":    "ba_ria_vung_tau",
	"ninh bình":   "ninh_binh",
	"ninh binh":   "ninh_binh",
	"tam cốc":     "ninh_binh",
	"cần thơ":     "can_tho",
	"can tho":     "can_tho",
	"phong nha":   "quang_binh",
	"quảng bình":  "quang_binh",
	"hà giang":    "ha_giang",
	"ha giang":    "ha_giang",
}

// regionalSpecialties lists signature dishes per province, used by the food
// expert both as search keywords and as the fallback recommendation.
var regionalSpecialties = map[string][]string{
	"da_nang":        {"Mì Quảng", "Bánh tráng cuốn thịt heo", "Bún chả cá", "Bánh xèo"},
	"ha_noi":         {"Phở", "Bún chả", "Chả cá Lã Vọng", "Bánh cuốn"},
	"ho_chi_minh":    {"Cơm tấm", "Hủ tiếu", "Bánh mì", "Phá lấu"},
	"kien_giang":     {"Gỏi cá trích", "Bún quậy", "Nhum biển", "Còi biên mai"},
	"lam_dong":       {"Bánh tráng nướng", "Lẩu gà lá é", "Nem nướng", "Bánh căn"},
	"khanh_hoa":      {"Bún cá sứa", "Nem nướng Ninh Hòa", "Bánh căn mực"},
	"thua_thien_hue": {"Bún bò Huế", "Bánh bèo", "Bánh nậm", "Cơm hến"},
	"quang_nam":      {"Cao lầu", "Mì Quảng", "Bánh mì Phượng", "Cơm gà Hội An"},
	"quang_ninh":     {"Chả mực Hạ Long", "Sá sùng", "Bún bề bề"},
	"can_tho":        {"Lẩu mắm", "Bánh cống", "Nem nướng Cái Răng"},
}

// Aliases normalizes free-form destination phrases to provinces.
type Aliases struct {
	byPhrase map[string]string
}

// NewAliases builds the alias table with the built-in entries.
func NewAliases() *Aliases {
	a := &Aliases{byPhrase: make(map[string]string, len(defaultAliases))}
	for phrase, id := range defaultAliases {
		a.byPhrase[phrase] = id
	}
	return a
}

// RegisterAlias adds or overrides a phrase mapping.
func (a *Aliases) RegisterAlias(phrase, provinceID string) {
	a.byPhrase[strings.ToLower(strings.TrimSpace(phrase))] = provinceID
}

// Normalize resolves a phrase to a province: exact match first, then the
// longest alias appearing as a substring.
func (a *Aliases) Normalize(phrase string) (ProvinceInfo, bool) {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	if lower == "" {
		return ProvinceInfo{}, false
	}
	if id, ok := a.byPhrase[lower]; ok {
		return provinceIndex[id], true
	}

	var candidates []string
	for alias := range a.byPhrase {
		if strings.Contains(lower, alias) {
			candidates = append(candidates, alias)
		}
	}
	if len(candidates) == 0 {
		return ProvinceInfo{}, false
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	return provinceIndex[a.byPhrase[candidates[0]]], true
}

// Specialties returns the signature dishes for a province.
func Specialties(provinceID string) []string {
	return regionalSpecialties[provinceID]
}

// ProvinceByID looks up the static province entry.
func ProvinceByID(id string) (ProvinceInfo, bool) {
	info, ok := provinceIndex[id]
	return info, ok
}
