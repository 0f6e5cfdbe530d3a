package contact

import "strings"

// Country is one entry of the calling-code selector. Code is the selector
// value; several countries share a dial code, so Code may carry a suffix.
type Country struct {
	Code     string `json:"code"`
	Name     string `json:"country"`
	DialCode string `json:"dial_code"`
}

// Countries is the selector list, Philippines first.
var Countries = []Country{
	{"+63", "Philippines", "+63"},
	{"+1-US", "USA", "+1"},
	{"+1-CA", "Canada", "+1"},
	{"+44", "United Kingdom", "+44"},
	{"+61", "Australia", "+61"},
	{"+852", "Hong Kong", "+852"},
	{"+886", "Taiwan", "+886"},
	{"+65", "Singapore", "+65"},
	{"+81", "Japan", "+81"},
	{"+82", "South Korea", "+82"},
	{"+86", "China", "+86"},
	{"+91", "India", "+91"},
	{"+971", "UAE", "+971"},
	{"+974", "Qatar", "+974"},
	{"+966", "Saudi Arabia", "+966"},
	{"+965", "Kuwait", "+965"},
	{"+968", "Oman", "+968"},
	{"+973", "Bahrain", "+973"},
	{"+39", "Italy", "+39"},
	{"+34", "Spain", "+34"},
	{"+33", "France", "+33"},
	{"+49", "Germany", "+49"},
	{"+31", "Netherlands", "+31"},
	{"+41", "Switzerland", "+41"},
	{"+32", "Belgium", "+32"},
	{"+64", "New Zealand", "+64"},
	{"+60", "Malaysia", "+60"},
	{"+66", "Thailand", "+66"},
	{"+84", "Vietnam", "+84"},
	{"+62", "Indonesia", "+62"},
	{"+20", "Egypt", "+20"},
	{"+27", "South Africa", "+27"},
	{"+55", "Brazil", "+55"},
	{"+52", "Mexico", "+52"},
	{"+7", "Russia", "+7"},
}

// DefaultCountryCode is used when the form omits the selector.
const DefaultCountryCode = "+63"

// DialCode resolves a selector value to its calling code. Unknown values
// are used as given.
func DialCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		code = DefaultCountryCode
	}
	for _, c := range Countries {
		if c.Code == code {
			return c.DialCode
		}
	}
	return code
}

// NormalizePhone strips spaces and leading zeros from the local number and
// prefixes the dial code. An empty local number stays empty.
func NormalizePhone(countryCode, local string) string {
	local = strings.ReplaceAll(strings.TrimSpace(local), " ", "")
	local = strings.TrimLeft(local, "0")
	if local == "" {
		return ""
	}
	return DialCode(countryCode) + local
}
