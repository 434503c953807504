package classifier

// Hand-tuned signal keywords, kept in code next to the engine. Weights run
// 4–9; the taxonomy contributes exact title phrases at weight 10 and their
// tokens at weight 1 on top of these.

// Stopword tokens excluded when tokenizing taxonomy title phrases.
var titleStopwords = map[string]bool{
	"developer":  true,
	"engineer":   true,
	"specialist": true,
	"analyst":    true,
}

type signalKeyword struct {
	category string
	weight   float64
}

// High-signal healthcare keywords. Any of these counts toward the distinct
// healthcare-keyword tally that can flip the industry to Healthcare.
var healthcareSignals = map[string]signalKeyword{
	"fhir":                        {"Healthcare Interoperability", 9},
	"hl7":                         {"Healthcare Interoperability", 9},
	"interoperability":            {"Healthcare Interoperability", 8},
	"health information exchange": {"Healthcare Interoperability", 8},
	"ehr":                         {"EHR Systems", 8},
	"emr":                         {"EHR Systems", 8},
	"epic":                        {"EHR Systems", 7},
	"cerner":                      {"EHR Systems", 7},
	"pacs":                        {"Healthcare IT", 7},
	"telehealth":                  {"Healthcare IT", 7},
	"radiology":                   {"Healthcare IT", 6},
	"healthcare":                  {"Healthcare IT", 6},
	"clinical":                    {"Healthcare IT", 6},
	"medical":                     {"Healthcare IT", 5},
	"hospital":                    {"Healthcare IT", 5},
	"patient":                     {"Healthcare IT", 5},
	"health informatics":          {"Healthcare Data & Analytics", 7},
}

// Per-specialization IT keyword sets.
var itCategoryKeywords = map[string]map[string]float64{
	"Frontend Development": {
		"frontend":   9,
		"front-end":  9,
		"front end":  8,
		"react":      8,
		"angular":    8,
		"vue":        8,
		"typescript": 6,
		"redux":      6,
		"next.js":    6,
		"javascript": 5,
		"css":        5,
		"tailwind":   5,
		"webpack":    5,
		"html":       4,
		"ui/ux":      4,
	},
	"Backend Development": {
		"backend":       9,
		"back-end":      9,
		"back end":      8,
		"django":        7,
		"spring boot":   7,
		"node.js":       6,
		"flask":         6,
		"golang":        6,
		"microservices": 5,
		"postgresql":    5,
		"mysql":         5,
		"graphql":       5,
		"express":       5,
		"rest api":      4,
		"api":           4,
	},
	"Full Stack Development": {
		"full stack":         9,
		"full-stack":         9,
		"fullstack":          9,
		"software engineer":  5,
		"software developer": 5,
		"web applications":   4,
	},
	"Cloud & DevOps": {
		"devops":           9,
		"site reliability": 8,
		"sre":              8,
		"kubernetes":       8,
		"terraform":        8,
		"docker":           7,
		"ci/cd":            7,
		"aws":              6,
		"azure":            6,
		"gcp":              6,
		"jenkins":          6,
		"ansible":          6,
		"cloud":            5,
		"helm":             5,
	},
	"Data Engineering": {
		"data engineer":  9,
		"data pipeline":  7,
		"etl":            7,
		"spark":          7,
		"airflow":        7,
		"kafka":          6,
		"snowflake":      6,
		"data warehouse": 6,
		"dbt":            5,
		"hadoop":         5,
	},
	"AI & Machine Learning": {
		"machine learning": 9,
		"deep learning":    8,
		"data scientist":   7,
		"pytorch":          7,
		"tensorflow":       7,
		"llm":              7,
		"genai":            7,
		"mlops":            7,
		"nlp":              6,
		"computer vision":  6,
		"ai engineer":      6,
	},
	"Security Engineering": {
		"cybersecurity":       9,
		"infosec":             8,
		"penetration testing": 8,
		"security engineer":   8,
		"appsec":              7,
		"security":            6,
		"siem":                6,
		"vulnerability":       6,
		"zero trust":          5,
	},
	"Mobile Development": {
		"react native": 8,
		"flutter":      8,
		"mobile":       7,
		"android":      7,
		"swift":        7,
		"kotlin":       7,
		"ios":          6,
	},
}
