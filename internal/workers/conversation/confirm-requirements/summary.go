// internal/workers/conversation/confirm-requirements/summary.go
package confirmrequirements

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"leadbot/internal/models"
)

const (
	contactPrompt = `ممتاز! عشان أقدر أكمل الحجز وأحول طلبك لفريق المبيعات، محتاج منك بعض البيانات البسيطة:

*   الاسم بالكامل
*   رقم تليفون للتواصل (لو غير الرقم الحالي)

اكتبهم في رسالة واحدة وهكملك الإجراء فوراً. 👇`

	editPrompt   = "تمام، قولي حابب تعدل ايه؟ المنطقة، المشروع، نوع الوحدة، الميزانية أو المساحة."
	cancelPrompt = "تمام، لغيت الطلب. لو حابب تبدأ بحث جديد قولي المنطقة ونوع الوحدة اللي بتدور عليها."

	noMatchIntro   = "للأسف ملاقيتش وحدات مطابقة بالظبط في قاعدة البيانات حالياً 😔\n\nلكن ولا يهمك! ممكن أسجل طلبك فوراً وفريق المبيعات هيدور لك مخصوص ويتواصل معاك.\n\nدي تفاصيل طلبك:\n\n"
	noMatchClosing = "\n\n**تحب أسجل الطلب بالبيانات دي؟**"
)

// Summary wordings, tersest last.
var (
	intros = []string{
		"خليني أتأكد من طلبك:\n\n",
		"تمام، خلينا نراجعها مرة أخيرة بس 👌\n\n",
		"آخر مراجعة:\n\n",
	}
	closings = []string{
		"\n\n**كده تمام؟** ولا تحب تعدل حاجة؟",
		"\n\n**كده صح؟**",
		"\n\n**نأكد ونبدأ؟**",
	}
)

var printer = message.NewPrinter(language.English)

// SummaryPrompt renders the confirmation message for the given attempt.
func (h *Handler) SummaryPrompt(s *models.ConversationSession, attempt int, noMatch bool) string {
	intro, closing := noMatchIntro, noMatchClosing
	if !noMatch {
		i := attempt
		if i > h.config.MaxTemplate {
			i = h.config.MaxTemplate
		}
		if i >= len(intros) {
			i = len(intros) - 1
		}
		intro, closing = intros[i], closings[i]
	}
	return intro + Summary(s) + closing
}

// Summary lists the collected requirements one per line.
func Summary(s *models.ConversationSession) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, "• "+label+": "+value)
		}
	}

	add("📍 المنطقة", s.Slots.Value(models.SlotArea))
	add("🏗️ المشروع", s.Slots.Value(models.SlotProject))
	add("🏠 نوع الوحدة", s.Slots.Value(models.SlotUnitType))
	add("💰 الميزانية", rangeText(s.Slots, models.SlotBudgetMin, models.SlotBudgetMax))
	add("🛏️ الغرف", s.Slots.Value(models.SlotBedrooms))
	add("🚿 الحمامات", s.Slots.Value(models.SlotBathrooms))
	add("📐 المساحة (م2)", rangeText(s.Slots, models.SlotSizeMin, models.SlotSizeMax))
	add("👤 الاسم", s.Slots.Value(models.SlotCustomerName))
	add("📞 التليفون", s.Slots.Value(models.SlotPhone))
	return strings.Join(lines, "\n")
}

func rangeText(slots models.Slots, minSlot, maxSlot models.SlotName) string {
	lo, hasLo := slots.Float(minSlot)
	hi, hasHi := slots.Float(maxSlot)
	switch {
	case hasLo && hasHi:
		return formatNumber(lo) + " - " + formatNumber(hi)
	case hasHi:
		return formatNumber(hi)
	case hasLo:
		return "من " + formatNumber(lo)
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	return printer.Sprintf("%d", int64(f))
}
