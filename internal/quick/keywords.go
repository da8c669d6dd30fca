package quick

// Trigger codes for the non-keyword quick rules.
const (
	TriggerOCRFailed    = "_OCR_FAILED"
	TriggerTextTooShort = "_TEXT_TOO_SHORT"

	// Diet trigger codes are prefixed so the caller can tell an allergy
	// hit from a diet hit.
	dietTriggerPrefix = "_DIET_"
)

// Full text shorter than this is treated as an unreadable menu.
const minReadableTextLen = 10

// allergenKeywords maps canonical allergen codes to the menu-text
// substrings that indicate their presence, native Korean terms first.
// Matching is case-insensitive substring search over the full OCR text.
var allergenKeywords = map[string][]string{
	"milk":              {"우유", "유제품", "치즈", "버터", "크림", "요거트", "밀크", "milk", "cheese", "butter", "cream", "yogurt"},
	"egg":               {"계란", "달걀", "메추리알", "마요네즈", "egg", "mayonnaise", "mayo"},
	"wheat":             {"밀", "밀가루", "빵", "면", "파스타", "만두", "튀김", "wheat", "flour", "bread", "noodle", "pasta"},
	"soy":               {"대두", "콩", "두부", "된장", "간장", "콩나물", "soy", "tofu", "soybean", "miso"},
	"peanut":            {"땅콩", "피넛", "peanut"},
	"tree_nut":          {"호두", "아몬드", "잣", "캐슈", "피스타치오", "헤이즐넛", "walnut", "almond", "cashew", "pistachio", "hazelnut", "pecan"},
	"fish":              {"생선", "고등어", "연어", "참치", "멸치", "조기", "갈치", "어묵", "fish", "salmon", "tuna", "mackerel", "anchovy"},
	"shellfish":         {"새우", "게", "꽃게", "대게", "랍스터", "가재", "크랩", "shrimp", "crab", "lobster", "prawn"},
	"shellfish_mollusk": {"조개", "굴", "홍합", "전복", "오징어", "문어", "낙지", "clam", "oyster", "mussel", "squid", "octopus", "abalone"},
	"sesame":            {"참깨", "들깨", "참기름", "들기름", "깨", "sesame", "tahini"},
	"buckwheat":         {"메밀", "소바", "buckwheat", "soba"},
	"pork":              {"돼지", "돼지고기", "삼겹살", "제육", "햄", "베이컨", "소시지", "pork", "ham", "bacon", "sausage"},
	"beef":              {"소고기", "쇠고기", "한우", "불고기", "갈비", "beef", "brisket"},
	"chicken":           {"닭", "닭고기", "치킨", "삼계탕", "chicken"},
	"tomato":            {"토마토", "tomato"},
	"sulfite":           {"와인", "건포도", "wine", "dried fruit"},
}

// allergenLabels are the display labels shown to the user per allergen code.
var allergenLabels = map[string]string{
	"milk":              "우유/유제품",
	"egg":               "계란",
	"wheat":             "밀/글루텐",
	"soy":               "대두/콩",
	"peanut":            "땅콩",
	"tree_nut":          "견과류",
	"fish":              "생선",
	"shellfish":         "갑각류",
	"shellfish_mollusk": "연체류/조개류",
	"sesame":            "참깨/들깨",
	"buckwheat":         "메밀",
	"pork":              "돼지고기",
	"beef":              "소고기",
	"chicken":           "닭고기",
	"tomato":            "토마토",
	"sulfite":           "아황산류",
}

// dietKeywords maps diet restriction codes to forbidden menu-text
// substrings. A hit contributes the code as _DIET_<code>.
var dietKeywords = map[string][]string{
	"halal": {
		"돼지", "돼지고기", "삼겹살", "제육", "햄", "베이컨", "소시지", "pork", "ham", "bacon",
		"술", "소주", "맥주", "막걸리", "와인", "alcohol", "beer", "wine", "soju",
	},
	"vegetarian": {
		"돼지", "돼지고기", "소고기", "쇠고기", "닭", "닭고기", "오리", "양고기", "고기",
		"생선", "새우", "오징어", "조개", "멸치",
		"pork", "beef", "chicken", "duck", "lamb", "meat", "fish", "shrimp", "squid",
	},
	"vegan": {
		"돼지", "소고기", "닭", "고기", "생선", "새우", "조개", "멸치",
		"우유", "치즈", "버터", "계란", "달걀", "꿀",
		"pork", "beef", "chicken", "meat", "fish", "shrimp",
		"milk", "cheese", "butter", "egg", "honey",
	},
	"no_beef": {
		"소고기", "쇠고기", "한우", "불고기", "갈비", "beef",
	},
}

// dietLabels are the display labels per diet code.
var dietLabels = map[string]string{
	"halal":      "할랄 (돼지고기/주류 불가)",
	"vegetarian": "채식 (육류/어패류 불가)",
	"vegan":      "비건 (모든 동물성 재료 불가)",
	"no_beef":    "소고기 제외",
}

// KeywordsForAllergen exposes the keyword list for one allergen code.
// Used by the DB verifier as its compiled-in fallback table.
func KeywordsForAllergen(code string) []string {
	return allergenKeywords[code]
}

// LabelForAllergen returns the display label for an allergen code, falling
// back to the code itself.
func LabelForAllergen(code string) string {
	if label, ok := allergenLabels[code]; ok {
		return label
	}
	return code
}
