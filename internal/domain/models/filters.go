package models

// Condition is the physical grade of a card copy.
type Condition string

const (
	CondNearMint         Condition = "NM"
	CondSlightlyPlayed   Condition = "SP"
	CondModeratelyPlayed Condition = "MP"
	CondHeavilyPlayed    Condition = "HP"
	CondDamaged          Condition = "DMG"
)

// Language of the printed card.
type Language string

const (
	LangEnglish  Language = "en"
	LangJapanese Language = "ja"
	LangGerman   Language = "de"
	LangFrench   Language = "fr"
	LangItalian  Language = "it"
	LangSpanish  Language = "es"
)

// Currency the price was observed in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyJPY Currency = "JPY"
)

// FilterSet narrows history/index queries. Every field is optional; the
// zero value matches everything. Typed fields here replace the stringly
// dict filters the upstream scrapers use.
type FilterSet struct {
	Currency  Currency
	Condition Condition
	Language  Language
	VenueID   string
	Foil      *bool
}

// IsZero reports whether no filter is set.
func (f FilterSet) IsZero() bool {
	return f.Currency == "" && f.Condition == "" && f.Language == "" &&
		f.VenueID == "" && f.Foil == nil
}
