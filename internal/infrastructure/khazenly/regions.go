package khazenly

// DefaultGovernorate is used when an address carries an unknown region code.
const DefaultGovernorate = "Cairo"

// governorateNames maps internal region codes to the governorate names
// Khazenly expects verbatim in the city field. The table is closed: the 27
// Egyptian governorates, nothing else.
var governorateNames = map[string]string{
	"ALX": "Alexandria",
	"ASN": "Aswan",
	"AST": "Assiut",
	"BA":  "Red Sea",
	"BH":  "Beheira",
	"BNS": "Beni Suef",
	"C":   "Cairo",
	"DK":  "Dakahlia",
	"DT":  "Damietta",
	"FYM": "Fayoum",
	"GH":  "Gharbiya",
	"GZ":  "Giza",
	"IS":  "Ismailia",
	"JS":  "South Sinai",
	"KB":  "Qalyubia",
	"KFS": "Kafr Al sheikh",
	"KN":  "Qena",
	"LX":  "Luxor",
	"MN":  "Minya",
	"MNF": "Menofia",
	"MT":  "Matrouh",
	"PTS": "Port Said",
	"SHG": "Sohag",
	"SHR": "Sharkia",
	"SIN": "North Sinai",
	"SUZ": "Suez",
	"WAD": "New Valley",
}

// GovernorateName returns the Khazenly governorate name for a region code.
// Unknown codes fall back to DefaultGovernorate with ok=false so callers can
// log the mismatch.
func GovernorateName(regionCode string) (string, bool) {
	if name, ok := governorateNames[regionCode]; ok {
		return name, true
	}
	return DefaultGovernorate, false
}
