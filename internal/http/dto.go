package http

import (
	"fmt"
	"time"

	"splitkasse/internal/core"
	"splitkasse/internal/services"
	"splitkasse/internal/storage"
)

// Response and request shapes of the JSON API. Money is a JSON number in
// euros, dates are YYYY-MM-DD and timestamps RFC 3339.

type monthDTO struct {
	ID                  int64    `json:"id"`
	Year                int      `json:"year"`
	Month               int      `json:"month"`
	Period              string   `json:"period"`
	Status              string   `json:"status"`
	PrivateBalanceStart float64  `json:"privateBalanceStart"`
	PrivateBalanceEnd   *float64 `json:"privateBalanceEnd"`
	ClosedAt            *string  `json:"closedAt"`
	CreatedAt           string   `json:"createdAt"`
}

type personDTO struct {
	Role      string  `json:"role"`
	Name      string  `json:"name"`
	NetIncome float64 `json:"netIncome"`
}

type fixedItemDTO struct {
	ID        int64   `json:"id"`
	Label     string  `json:"label"`
	Amount    float64 `json:"amount"`
	SplitMode string  `json:"splitMode"`
	MyShare   float64 `json:"myShare"`
}

type fixedCategoryDTO struct {
	ID    int64          `json:"id"`
	Label string         `json:"label"`
	Total float64        `json:"total"`
	Items []fixedItemDTO `json:"items"`
}

type expenseDTO struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type transferDTO struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	CreatedBy   string  `json:"createdBy"`
	CreatedAt   string  `json:"createdAt"`
}

type overviewDTO struct {
	Month           monthDTO           `json:"month"`
	Me              personDTO          `json:"me"`
	Partner         personDTO          `json:"partner"`
	FixedCategories []fixedCategoryDTO `json:"fixedCategories"`
	PrivateExpenses []expenseDTO       `json:"privateExpenses"`
	Transfers       []transferDTO      `json:"transfers"`
	Computed        core.MonthComputed `json:"computed"`
}

type closeResponse struct {
	Month    monthDTO           `json:"month"`
	Computed core.MonthComputed `json:"computed"`
}

type closedMonthDTO struct {
	MonthID             int64   `json:"monthId"`
	Year                int     `json:"year"`
	Month               int     `json:"month"`
	Period              string  `json:"period"`
	PrivateBalanceStart float64 `json:"privateBalanceStart"`
	PrivateBalanceEnd   float64 `json:"privateBalanceEnd"`
	TotalTransfers      float64 `json:"totalTransfers"`
	ClosedAt            string  `json:"closedAt"`
}

type historyPositionDTO struct {
	ID            int64   `json:"id"`
	Kind          string  `json:"kind"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	CreatedAt     string  `json:"createdAt"`
	CreatedByName string  `json:"createdByName"`
}

type historyDTO struct {
	Last5      []historyPositionDTO `json:"last5"`
	TotalCount int                  `json:"totalCount"`
	Full       []historyPositionDTO `json:"full,omitempty"`
}

type profileDTO struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
	Name string `json:"name"`
}

type templateItemDTO struct {
	ID         int64   `json:"id"`
	CategoryID int64   `json:"categoryId"`
	Label      string  `json:"label"`
	Amount     float64 `json:"amount"`
	SplitMode  string  `json:"splitMode"`
	SortOrder  int     `json:"sortOrder"`
}

type templateCategoryDTO struct {
	ID        int64             `json:"id"`
	Label     string            `json:"label"`
	SortOrder int               `json:"sortOrder"`
	Items     []templateItemDTO `json:"items"`
}

// Requests.

type incomesRequest struct {
	Me      *Amount `json:"me"`
	Partner *Amount `json:"partner"`
}

type balanceStartRequest struct {
	PrivateBalanceStart *SignedAmount `json:"privateBalanceStart"`
}

type labelRequest struct {
	Label string `json:"label"`
}

type itemRequest struct {
	Label     string `json:"label"`
	Amount    Amount `json:"amount"`
	SplitMode string `json:"splitMode"`
	CreatedBy string `json:"createdBy"`
}

type itemPatchRequest struct {
	Label     *string `json:"label"`
	Amount    *Amount `json:"amount"`
	SplitMode *string `json:"splitMode"`
}

type expenseRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
	CreatedBy   string `json:"createdBy"`
}

type transferRequest struct {
	Amount      Amount `json:"amount"`
	Description string `json:"description"`
	CreatedBy   string `json:"createdBy"`
}

type profileRequest struct {
	Name string `json:"name"`
}

type calcPerson struct {
	Name      string `json:"name"`
	NetIncome Amount `json:"netIncome"`
}

type calcItem struct {
	Label     string `json:"label"`
	Amount    Amount `json:"amount"`
	SplitMode string `json:"splitMode"`
}

type calcCategory struct {
	Label string     `json:"label"`
	Items []calcItem `json:"items"`
}

type calcExpense struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      Amount `json:"amount"`
}

// calculateRequest is a month's raw inputs. Nothing is stored.
type calculateRequest struct {
	Me                  calcPerson     `json:"me"`
	Partner             calcPerson     `json:"partner"`
	FixedCategories     []calcCategory `json:"fixedCategories"`
	PrivateExpenses     []calcExpense  `json:"privateExpenses"`
	PrivateBalanceStart SignedAmount   `json:"privateBalanceStart"`
	PrepaymentThisMonth Amount         `json:"prepaymentThisMonth"`
}

// Conversions.

func period(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toMonthDTO(m storage.Month) monthDTO {
	dto := monthDTO{
		ID:                  m.ID,
		Year:                m.Year,
		Month:               m.Month,
		Period:              period(m.Year, m.Month),
		Status:              string(m.Status),
		PrivateBalanceStart: m.PrivateBalanceStart,
		PrivateBalanceEnd:   m.PrivateBalanceEnd,
		CreatedAt:           formatTimestamp(m.CreatedAt),
	}
	if m.ClosedAt != nil {
		closedAt := formatTimestamp(*m.ClosedAt)
		dto.ClosedAt = &closedAt
	}
	return dto
}

func toPersonDTO(p core.Person) personDTO {
	return personDTO{Role: string(p.Role), Name: p.Name, NetIncome: p.NetIncome}
}

func toFixedItemDTO(item core.FixedItem, shareMe float64) fixedItemDTO {
	return fixedItemDTO{
		ID:        item.ID,
		Label:     item.Label,
		Amount:    item.Amount,
		SplitMode: string(item.SplitMode),
		MyShare:   core.CalculateMyShareForFixedItem(item, shareMe),
	}
}

func toFixedCategoryDTO(c core.FixedCategory, shareMe float64) fixedCategoryDTO {
	dto := fixedCategoryDTO{
		ID:    c.ID,
		Label: c.Label,
		Total: core.SumFixedCosts([]core.FixedCategory{c}),
		Items: make([]fixedItemDTO, 0, len(c.Items)),
	}
	for _, item := range c.Items {
		dto.Items = append(dto.Items, toFixedItemDTO(item, shareMe))
	}
	return dto
}

func toExpenseDTO(e core.PrivateExpense) expenseDTO {
	return expenseDTO{ID: e.ID, Date: e.Date.ISO(), Description: e.Description, Amount: e.Amount}
}

func toTransferDTO(t storage.Transfer, names map[int64]string) transferDTO {
	return transferDTO{
		ID:          t.ID,
		Amount:      t.Amount,
		Description: t.Description,
		CreatedBy:   names[t.CreatedBy],
		CreatedAt:   formatTimestamp(t.CreatedAt),
	}
}

func toOverviewDTO(ov services.MonthOverview) overviewDTO {
	shareMe := ov.Computed.ShareMe
	names := make(map[int64]string, len(ov.Profiles))
	for _, p := range ov.Profiles {
		names[p.ID] = p.Name
	}

	dto := overviewDTO{
		Month:           toMonthDTO(ov.Month),
		Me:              toPersonDTO(ov.Inputs.Me),
		Partner:         toPersonDTO(ov.Inputs.Partner),
		FixedCategories: make([]fixedCategoryDTO, 0, len(ov.Inputs.FixedCategories)),
		PrivateExpenses: make([]expenseDTO, 0, len(ov.Inputs.PrivateExpenses)),
		Transfers:       make([]transferDTO, 0, len(ov.Transfers)),
		Computed:        ov.Computed,
	}
	for _, c := range ov.Inputs.FixedCategories {
		dto.FixedCategories = append(dto.FixedCategories, toFixedCategoryDTO(c, shareMe))
	}
	for _, e := range ov.Inputs.PrivateExpenses {
		dto.PrivateExpenses = append(dto.PrivateExpenses, toExpenseDTO(e))
	}
	for _, t := range ov.Transfers {
		dto.Transfers = append(dto.Transfers, toTransferDTO(t, names))
	}
	return dto
}

func toClosedMonthDTO(s core.ClosedMonthSummary) closedMonthDTO {
	return closedMonthDTO{
		MonthID:             s.MonthID,
		Year:                s.Year,
		Month:               s.Month,
		Period:              period(s.Year, s.Month),
		PrivateBalanceStart: s.PrivateBalanceStart,
		PrivateBalanceEnd:   s.PrivateBalanceEnd,
		TotalTransfers:      s.TotalTransfers,
		ClosedAt:            formatTimestamp(s.ClosedAt),
	}
}

func toHistoryPositions(positions []core.HistoryPosition) []historyPositionDTO {
	out := make([]historyPositionDTO, 0, len(positions))
	for _, p := range positions {
		out = append(out, historyPositionDTO{
			ID:            p.ID,
			Kind:          string(p.Kind),
			Description:   p.Description,
			Amount:        p.Amount,
			CreatedAt:     formatTimestamp(p.CreatedAt),
			CreatedByName: p.CreatedByName,
		})
	}
	return out
}

func toHistoryDTO(h core.MonthHistory, full bool) historyDTO {
	dto := historyDTO{
		Last5:      toHistoryPositions(h.Last5),
		TotalCount: h.TotalCount,
	}
	if full {
		dto.Full = toHistoryPositions(h.Full)
	}
	return dto
}

func toProfileDTO(p storage.Profile) profileDTO {
	return profileDTO{ID: p.ID, Role: string(p.Role), Name: p.Name}
}

func toTemplateItemDTO(item storage.TemplateItem) templateItemDTO {
	return templateItemDTO{
		ID:         item.ID,
		CategoryID: item.CategoryID,
		Label:      item.Label,
		Amount:     item.Amount,
		SplitMode:  string(item.SplitMode),
		SortOrder:  item.SortOrder,
	}
}

func toTemplateCategoryDTO(c storage.TemplateCategory) templateCategoryDTO {
	dto := templateCategoryDTO{
		ID:        c.ID,
		Label:     c.Label,
		SortOrder: c.SortOrder,
		Items:     make([]templateItemDTO, 0, len(c.Items)),
	}
	for _, item := range c.Items {
		dto.Items = append(dto.Items, toTemplateItemDTO(item))
	}
	return dto
}

// toInputs turns a calculate request into calculator inputs. Split modes are
// normalised the same way stored rows are; amounts are validated first.
func (req calculateRequest) toInputs() (core.MonthInputs, error) {
	in := core.MonthInputs{
		Me:                  core.Person{Role: core.RoleMe, Name: req.Me.Name, NetIncome: core.Money(req.Me.NetIncome)},
		Partner:             core.Person{Role: core.RolePartner, Name: req.Partner.Name, NetIncome: core.Money(req.Partner.NetIncome)},
		PrivateBalanceStart: core.Money(req.PrivateBalanceStart),
		PrepaymentThisMonth: core.Money(req.PrepaymentThisMonth),
	}
	if err := in.Me.Validate(); err != nil {
		return core.MonthInputs{}, fmt.Errorf("me: %w", err)
	}
	if err := in.Partner.Validate(); err != nil {
		return core.MonthInputs{}, fmt.Errorf("partner: %w", err)
	}
	if in.PrepaymentThisMonth < 0 {
		return core.MonthInputs{}, fmt.Errorf("prepayment: %w", core.ErrInvalidAmount)
	}

	for _, c := range req.FixedCategories {
		category := core.FixedCategory{Label: c.Label}
		for _, item := range c.Items {
			category.Items = append(category.Items, core.FixedItem{
				Label:     item.Label,
				Amount:    core.Money(item.Amount),
				SplitMode: core.ParseSplitMode(item.SplitMode),
			})
		}
		if err := category.Validate(); err != nil {
			return core.MonthInputs{}, fmt.Errorf("category %q: %w", c.Label, err)
		}
		in.FixedCategories = append(in.FixedCategories, category)
	}

	for _, e := range req.PrivateExpenses {
		date, err := core.ParseDate(e.Date)
		if err != nil {
			return core.MonthInputs{}, fmt.Errorf("expense %q: %w", e.Description, err)
		}
		expense := core.PrivateExpense{Date: date, Description: e.Description, Amount: core.Money(e.Amount)}
		if err := expense.Validate(); err != nil {
			return core.MonthInputs{}, fmt.Errorf("expense %q: %w", e.Description, err)
		}
		in.PrivateExpenses = append(in.PrivateExpenses, expense)
	}
	return in, nil
}
