package roster

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/millionvolts/adgather/internal/model"
)

// Flag is a loosely-typed boolean: 1/true/y/yes (any case, string or scalar)
// are true, everything else is false.
type Flag bool

// UnmarshalYAML accepts bool, integer, and string spellings of the flag.
func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*f = Flag(truthy(raw))
	return nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int:
		return x == 1
	case int64:
		return x == 1
	case float64:
		return x == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "y", "yes":
			return true
		}
	}
	return false
}

// Row is one account descriptor as supplied by the host environment.
type Row struct {
	Account string `yaml:"account"`
	Billing Flag   `yaml:"billing"`
}

// Accounts converts descriptor rows into canonical accounts, preserving
// order. Rows with an empty account identifier are dropped.
func Accounts(rows []Row) []model.Account {
	out := make([]model.Account, 0, len(rows))
	for _, r := range rows {
		id := model.NormalizeAccountID(r.Account)
		if id == "" {
			continue
		}
		out = append(out, model.Account{
			ID:      id,
			PlainID: model.PlainAccountID(id),
			Billing: bool(r.Billing),
		})
	}
	return out
}

// HasBilling reports whether any account in the list is a billing account.
func HasBilling(accounts []model.Account) bool {
	for _, a := range accounts {
		if a.Billing {
			return true
		}
	}
	return false
}
