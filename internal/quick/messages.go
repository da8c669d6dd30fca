package quick

// Message keys for the localized summary and staff-question strings.
// The verdict logic never branches on locale; only these strings do.
type messageKey int

const (
	msgOCRFailed messageKey = iota
	msgTextTooShort
	msgDanger
	msgSafe
	questionGeneric
	questionAllergy
	questionDiet
)

var messages = map[string]map[messageKey]string{
	"ko": {
		msgOCRFailed:    "메뉴 글자를 읽지 못했어요. 사진을 다시 찍거나 직원에게 확인해 주세요.",
		msgTextTooShort: "읽은 글자가 너무 적어요. 메뉴 전체가 나오게 다시 찍어 주세요.",
		msgDanger:       "주의가 필요한 재료가 메뉴에서 발견됐어요.",
		msgSafe:         "등록된 알레르기·식단 관련 재료가 발견되지 않았어요.",
		questionGeneric: "이 메뉴의 주재료가 무엇인가요?",
		questionAllergy: "이 메뉴에 제 알레르기 유발 재료가 들어가나요? 빼고 조리할 수 있나요?",
		questionDiet:    "이 메뉴가 제 식단 제한(할랄/채식 등)에 맞게 조리될 수 있나요?",
	},
	"en": {
		msgOCRFailed:    "We couldn't read the menu text. Please retake the photo or ask the staff.",
		msgTextTooShort: "Too little text was read. Please retake with the full menu in frame.",
		msgDanger:       "Ingredients that need your attention were found on this menu.",
		msgSafe:         "No ingredients matching your allergy or diet profile were found.",
		questionGeneric: "What are the main ingredients of this dish?",
		questionAllergy: "Does this dish contain my allergens? Can it be made without them?",
		questionDiet:    "Can this dish be prepared to fit my dietary restriction?",
	},
}

// localize resolves a message for the given locale, falling back to
// English for unknown locales.
func localize(locale string, key messageKey) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	return messages["en"][key]
}
