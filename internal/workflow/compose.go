package workflow

import (
	"fmt"
	"strings"

	"leadbot/internal/models"
)

const (
	apologyText = "عذراً، حصلت مشكلة مؤقتة وأنا بجهز ردك. ممكن تبعت رسالتك تاني بعد لحظات؟"

	greetingIntro   = "أهلاً وسهلاً! أنا مساعدك في البحث عن العقارات."
	greetingAreas   = "أقدر أساعدك في إيجاد وحدات في المناطق المتاحة لدينا:"
	greetingClosing = "حابب تبدأ البحث في أي منطقة؟"

	leadCreatedText = `تم استلام طلبك بنجاح! ✅
رقم الطلب: #%s

تم تحويل طلبك لأحد مستشارينا المتميزين في فريق المبيعات. هيتواصل معاك في أقرب وقت عشان يعرض عليك الوحدات المتاحة بأسعارها وتفاصيل السداد.

هل تحب نعمل بحث تاني؟`

	leadExistsText = "طلبك مسجل بالفعل ✅\nرقم الطلب: #%s\n\nلو حابب تبدأ بحث جديد قولي المنطقة ونوع الوحدة."

	leadPendingText = "حدث خطأ بسيط أثناء تسجيل طلبك، ولكن لا تقلق. طلبك محفوظ وهيتسجل تلقائياً خلال دقائق وفريق المبيعات هيتواصل معاك."

	areaNotFoundText    = `عذراً، لم أتمكن من العثور على منطقة تسمى "%s" في قاعدة البيانات.`
	areaNotFoundList    = "المناطق المتاحة حالياً هي:"
	areaNotFoundClosing = "من فضلك اختر واحدة من هذه المناطق وسأكمل تسجيل طلبك فوراً."
)

func greeting(areas []models.CatalogEntry) string {
	var b strings.Builder
	b.WriteString(greetingIntro)
	if len(areas) > 0 {
		b.WriteString("\n\n")
		b.WriteString(greetingAreas)
		writeAreas(&b, areas)
	}
	b.WriteString("\n\n")
	b.WriteString(greetingClosing)
	return b.String()
}

func areaNotFound(area string, areas []models.CatalogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, areaNotFoundText, area)
	if len(areas) > 0 {
		b.WriteString("\n\n")
		b.WriteString(areaNotFoundList)
		writeAreas(&b, areas)
	}
	b.WriteString("\n\n")
	b.WriteString(areaNotFoundClosing)
	return b.String()
}

func writeAreas(b *strings.Builder, areas []models.CatalogEntry) {
	for _, a := range areas {
		b.WriteString("\n• ")
		b.WriteString(a.PrimaryName)
	}
}

func areaActions(areas []models.CatalogEntry) []models.SuggestedAction {
	out := make([]models.SuggestedAction, 0, len(areas))
	for _, a := range areas {
		label := a.PrimaryName
		if a.SecondaryName != "" {
			label = a.SecondaryName
		}
		out = append(out, models.SuggestedAction{ID: "area:" + a.ID, Label: label})
	}
	return out
}
