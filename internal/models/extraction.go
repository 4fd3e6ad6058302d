package models

import (
	"strconv"
	"strings"
)

// Extraction is the structured output of the requirement extractor. A nil
// field means the message said nothing about it.
type Extraction struct {
	CustomerName *string  `json:"customerName"`
	Phone        *string  `json:"phone"`
	Email        *string  `json:"email"`
	Area         *string  `json:"area"`
	Project      *string  `json:"project"`
	UnitType     *string  `json:"unitType"`
	BudgetMin    *float64 `json:"budgetMin"`
	BudgetMax    *float64 `json:"budgetMax"`
	SizeMin      *float64 `json:"sizeMin"`
	SizeMax      *float64 `json:"sizeMax"`
	Bedrooms     *int     `json:"bedrooms"`
	Bathrooms    *int     `json:"bathrooms"`
	Notes        *string  `json:"notes"`
}

// Values flattens the non-null fields to their string forms.
func (e *Extraction) Values() map[SlotName]string {
	out := map[SlotName]string{}
	if e == nil {
		return out
	}
	putStr := func(name SlotName, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			out[name] = strings.TrimSpace(*v)
		}
	}
	putNum := func(name SlotName, v *float64) {
		if v != nil && *v > 0 {
			out[name] = strconv.FormatFloat(*v, 'f', -1, 64)
		}
	}
	putInt := func(name SlotName, v *int) {
		if v != nil && *v > 0 {
			out[name] = strconv.Itoa(*v)
		}
	}

	putStr(SlotCustomerName, e.CustomerName)
	putStr(SlotPhone, e.Phone)
	putStr(SlotEmail, e.Email)
	putStr(SlotArea, e.Area)
	putStr(SlotProject, e.Project)
	putStr(SlotUnitType, e.UnitType)
	putNum(SlotBudgetMin, e.BudgetMin)
	putNum(SlotBudgetMax, e.BudgetMax)
	putNum(SlotSizeMin, e.SizeMin)
	putNum(SlotSizeMax, e.SizeMax)
	putInt(SlotBedrooms, e.Bedrooms)
	putInt(SlotBathrooms, e.Bathrooms)
	putStr(SlotNotes, e.Notes)
	return out
}
