// Package domain models weather-related damage events reported by military
// installations and the rules that classify them.
//
// # Data Source
//
// Damage events arrive as a spreadsheet export in CSV form, one row per event.
// Columns are addressed by header text, never by position:
//
//	Weather Event           free text, e.g. "Hurricane Mawar", "Winter Storm"
//	Date of Weather Event   M/D/YY or MM/DD/YY
//	Year                    optional, ignored (see below)
//	Cost                    US dollars, e.g. "1000", "$1,250.50"
//	Installation            reporting base or site
//	State                   optional
//	Branch                  optional organizational tag
//	Named Storm             optional, e.g. "Ian"
//
// # Dates and Years
//
// Two-digit years map to 2000+YY. There is no century rollover: "01/15/99"
// is 2099, not 1999. Four-digit years from 2000 onward are accepted as-is.
// Calendar validity is enforced, so "02/30/23" is rejected rather than
// rolled into March.
//
// The event year is always derived from the parsed date. A literal Year
// column, when present, is not trusted; disagreements are counted by the
// ingester for auditing but never change the derived year.
//
// # Costs
//
// A leading "$" and thousands separators are stripped before parsing. Missing,
// non-numeric and negative costs make the row invalid. A zero cost is valid.
//
// # Categories
//
// Free-text descriptions are classified into ten canonical categories by an
// ordered keyword list. The first rule with a matching keyword wins, so
// "Tropical Storm with high wind" is a Hurricane/Tropical Storm and not a
// Severe Storm. See [DefaultRules] for the canonical order.
package domain
