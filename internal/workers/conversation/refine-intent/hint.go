// internal/workers/conversation/refine-intent/hint.go
package refineintent

import (
	"fmt"
	"strings"

	"leadbot/internal/models"
)

// WorkflowHint renders the phase hint embedded in the classifier prompt.
func WorkflowHint(s *models.ConversationSession) string {
	var b strings.Builder

	switch {
	case s.AwaitingConfirmation:
		fmt.Fprintf(&b, "🔔 الحالة الحالية: انا سألت العميل عن تأكيد الطلب (المحاولة %d).\n", s.ConfirmationAttempt)
		b.WriteString("قواعد التفسير:\n")
		b.WriteString("- رسالة زي \"تمام\"/\"اه\"/\"نعم\"/\"ok\"/\"ماشي\" = confirm\n")
		b.WriteString("- رسالة زي \"لا\"/\"غلط\"/\"عدل\"/\"غير\" = edit\n")
		b.WriteString("- لو سأل سؤال جديد = inquiry\n")
	case s.AwaitingNameCorrection:
		field := "اسم"
		if s.PendingCorrection != nil {
			field = string(s.PendingCorrection.Field)
		}
		fmt.Fprintf(&b, "🔔 الحالة الحالية: انا سألت العميل عن تصحيح %s.\n", field)
		b.WriteString("قواعد التفسير:\n")
		b.WriteString("- لو رد باسم جديد (كلمة أو كلمتين) = correction\n")
		b.WriteString("- لو رد \"صح\"/\"اه\" = confirm\n")
	case len(s.MissingFields) > 0:
		missing := s.MissingFields
		if len(missing) > 2 {
			missing = missing[:2]
		}
		fmt.Fprintf(&b, "📋 معلومات ناقصة نحتاجها: %s\n", strings.Join(missing, ", "))
		b.WriteString("- لو العميل ذكر أي من المعلومات دي = new_search أو update_requirements\n")
	}

	var known []string
	for _, name := range models.SlotNames {
		if v := s.Slots.Value(name); v != "" {
			known = append(known, fmt.Sprintf("%s=%s", name, v))
			if len(known) == 4 {
				break
			}
		}
	}
	if len(known) > 0 {
		fmt.Fprintf(&b, "📋 المعلومات المسجلة حالياً: %s", strings.Join(known, ", "))
	}
	return strings.TrimSpace(b.String())
}
