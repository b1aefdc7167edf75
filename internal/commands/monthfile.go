package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"splitkasse/internal/core"
)

// amount accepts 12.5, "12,50" or "-80.46" and rounds to cents.
type amount core.Money

func (a *amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a number", node.Line)
	}
	v, err := core.ParseSignedAmount(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q: %w", node.Line, node.Value, err)
	}
	*a = amount(v)
	return nil
}

type personFile struct {
	Name      string `yaml:"name"`
	NetIncome amount `yaml:"net_income"`
}

type itemFile struct {
	Label     string `yaml:"label"`
	Amount    amount `yaml:"amount"`
	SplitMode string `yaml:"split_mode,omitempty"`
}

type categoryFile struct {
	Label string     `yaml:"label"`
	Items []itemFile `yaml:"items"`
}

type expenseFile struct {
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Amount      amount `yaml:"amount"`
}

// monthFile is one month in the calc/chain input format.
type monthFile struct {
	Label               string         `yaml:"label,omitempty"`
	Me                  *personFile    `yaml:"me,omitempty"`
	Partner             *personFile    `yaml:"partner,omitempty"`
	PrivateBalanceStart amount         `yaml:"private_balance_start"`
	Prepayment          amount         `yaml:"prepayment"`
	FixedCategories     []categoryFile `yaml:"fixed_categories"`
	PrivateExpenses     []expenseFile  `yaml:"private_expenses"`
}

// chainFile is a run of consecutive months. Months without their own me or
// partner block inherit the top-level ones.
type chainFile struct {
	Me      *personFile `yaml:"me,omitempty"`
	Partner *personFile `yaml:"partner,omitempty"`
	Start   amount      `yaml:"start"`
	Months  []monthFile `yaml:"months"`
}

func decodeYAML(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty input")
		}
		return err
	}
	return nil
}

func readYAMLFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := decodeYAML(f, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (p *personFile) toPerson(role core.PersonRole) (core.Person, error) {
	person := core.Person{Role: role}
	if p != nil {
		person.Name = p.Name
		person.NetIncome = core.Money(p.NetIncome)
	}
	if err := person.Validate(); err != nil {
		return core.Person{}, fmt.Errorf("%s: %w", role, err)
	}
	return person, nil
}

// toInputs validates the month and converts it to calculator inputs. Split
// modes go through the strict parser: a typo in a file is an error, not an
// income split.
func (m monthFile) toInputs(defaultMe, defaultPartner *personFile) (core.MonthInputs, error) {
	me, partner := m.Me, m.Partner
	if me == nil {
		me = defaultMe
	}
	if partner == nil {
		partner = defaultPartner
	}

	var (
		in  core.MonthInputs
		err error
	)
	if in.Me, err = me.toPerson(core.RoleMe); err != nil {
		return core.MonthInputs{}, err
	}
	if in.Partner, err = partner.toPerson(core.RolePartner); err != nil {
		return core.MonthInputs{}, err
	}
	in.PrivateBalanceStart = core.Money(m.PrivateBalanceStart)
	in.PrepaymentThisMonth = core.Money(m.Prepayment)
	if in.PrepaymentThisMonth < 0 {
		return core.MonthInputs{}, fmt.Errorf("prepayment: %w", core.ErrInvalidAmount)
	}

	for _, c := range m.FixedCategories {
		category := core.FixedCategory{Label: c.Label}
		for _, it := range c.Items {
			mode, err := core.ParseSplitModeStrict(it.SplitMode)
			if err != nil {
				return core.MonthInputs{}, fmt.Errorf("item %q: %w", it.Label, err)
			}
			category.Items = append(category.Items, core.FixedItem{
				Label:     it.Label,
				Amount:    core.Money(it.Amount),
				SplitMode: mode,
			})
		}
		if err := category.Validate(); err != nil {
			return core.MonthInputs{}, fmt.Errorf("category %q: %w", c.Label, err)
		}
		in.FixedCategories = append(in.FixedCategories, category)
	}

	for _, e := range m.PrivateExpenses {
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
