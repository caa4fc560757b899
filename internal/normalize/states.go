package normalize

// UFInfo describes one Brazilian state.
type UFInfo struct {
	Name   string
	Region string
}

// UFMetadata maps the 27 valid state codes to their names and macro-regions.
var UFMetadata = map[string]UFInfo{
	"AC": {Name: "Acre", Region: "Norte"},
	"AL": {Name: "Alagoas", Region: "Nordeste"},
	"AP": {Name: "Amapá", Region: "Norte"},
	"AM": {Name: "Amazonas", Region: "Norte"},
	"BA": {Name: "Bahia", Region: "Nordeste"},
	"CE": {Name: "Ceará", Region: "Nordeste"},
	"DF": {Name: "Distrito Federal", Region: "Centro-Oeste"},
	"ES": {Name: "Espírito Santo", Region: "Sudeste"},
	"GO": {Name: "Goiás", Region: "Centro-Oeste"},
	"MA": {Name: "Maranhão", Region: "Nordeste"},
	"MT": {Name: "Mato Grosso", Region: "Centro-Oeste"},
	"MS": {Name: "Mato Grosso do Sul", Region: "Centro-Oeste"},
	"MG": {Name: "Minas Gerais", Region: "Sudeste"},
	"PA": {Name: "Pará", Region: "Norte"},
	"PB": {Name: "Paraíba", Region: "Nordeste"},
	"PR": {Name: "Paraná", Region: "Sul"},
	"PE": {Name: "Pernambuco", Region: "Nordeste"},
	"PI": {Name: "Piauí", Region: "Nordeste"},
	"RJ": {Name: "Rio de Janeiro", Region: "Sudeste"},
	"RN": {Name: "Rio Grande do Norte", Region: "Nordeste"},
	"RS": {Name: "Rio Grande do Sul", Region: "Sul"},
	"RO": {Name: "Rondônia", Region: "Norte"},
	"RR": {Name: "Roraima", Region: "Norte"},
	"SC": {Name: "Santa Catarina", Region: "Sul"},
	"SP": {Name: "São Paulo", Region: "Sudeste"},
	"SE": {Name: "Sergipe", Region: "Nordeste"},
	"TO": {Name: "Tocantins", Region: "Norte"},
}

// ValidUF reports whether code is one of the 27 state codes.
func ValidUF(code string) bool {
	_, ok := UFMetadata[code]
	return ok
}

// foldedStateNames maps the accent-stripped lowercase state name to its code,
// built once at init for DetectUFs.
var foldedStateNames = func() map[string]string {
	names := make(map[string]string, len(UFMetadata))
	for code, info := range UFMetadata {
		names[FoldString(info.Name)] = code
	}
	return names
}()
