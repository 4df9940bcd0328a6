package labels

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/danielpatrickdp/sentencing-engine/internal/engine"
	"github.com/danielpatrickdp/sentencing-engine/internal/facts"
)

// #region patterns
var (
	amountRe      = regexp.MustCompile(`^(盗窃|诈骗|职务侵占)(?:金额|数额)(既遂|未遂)?([0-9.]+)(万)?元$`)
	countRe       = regexp.MustCompile(`^(盗窃|诈骗)次数([0-9]+)次$`)
	injuryRe      = regexp.MustCompile(`^故意伤害致([0-9]+)人(轻伤|重伤)(一级|二级)?$`)
	deathRe       = regexp.MustCompile(`^故意伤害致([0-9]+)人死亡$`)
	bandHintRe    = regexp.MustCompile(`^(盗窃|诈骗|职务侵占)数额(较大|巨大|特别巨大)$`)
	restitutionRe = regexp.MustCompile(`^(退赔|退赃|赔偿)([0-9.]+)(万)?元$`)
	chargeRe      = regexp.MustCompile(`(因涉嫌|指控犯)(.*?)罪`)
	procuratorRe  = regexp.MustCompile(`公诉机关(.*?)人民检察院`)
	residenceRe   = regexp.MustCompile(`户籍(?:所在)?地[:：]?(?:为|是)?([^。,，;；\n]+)`)
	addressRe     = regexp.MustCompile(`住(?:址|所)?[:：]?([^。,，;；\n]+)`)
)

// provinces are the province-level names searched in free text.
var provinces = []string{
	"北京", "天津", "上海", "重庆", "河北", "山西", "辽宁", "吉林", "黑龙江",
	"江苏", "浙江", "安徽", "福建", "江西", "山东", "河南", "湖北", "湖南",
	"广东", "海南", "四川", "贵州", "云南", "陕西", "甘肃", "青海", "台湾",
	"内蒙古", "广西", "西藏", "宁夏", "新疆", "香港", "澳门",
}

// crimePrefixes maps label prefixes and charge names to crime ids.
var crimePrefixes = []struct {
	keyword string
	crime   string
}{
	{"职务侵占", "embezzlement"},
	{"故意伤害", "intentional_injury"},
	{"诈骗", "fraud"},
	{"盗窃", "theft"},
}

// severityRank orders injury results; the worst one found wins.
var severityRank = map[string]int{
	"轻伤":   1,
	"轻伤二级": 1,
	"轻伤一级": 2,
	"重伤":   3,
	"重伤二级": 3,
	"重伤一级": 4,
	"致人死亡": 5,
}

var fullRestitution = map[string]bool{
	"退赔全部损失": true,
	"全部退赃":   true,
	"全额赔偿":   true,
}

var informational = map[string]bool{
	"法定减轻": true,
}

// #endregion patterns

// #region parser
// Parser turns extraction labels such as 盗窃金额既遂3631元 into calculator input.
type Parser struct {
	config ParserConfig
}

// NewParser creates a parser.
func NewParser(config ParserConfig) *Parser {
	return &Parser{config: config}
}

// Parse is deterministic and never fails; labels it cannot place are kept
// in Unrecognized and forwarded as unknown tags.
func (p *Parser) Parse(raw []string) Extraction {
	x := parse(raw)
	if x.CrimeType == "" {
		x.CrimeType = p.config.DefaultCrime
	}
	return x
}

// Input resolves a case into calculator input. Explicit fields win over
// labels, labels win over the fact text, and the configured default crime
// comes last.
func (p *Parser) Input(c Case) engine.Input {
	x := parse(c.Labels)

	crime := firstNonEmpty(c.CrimeType, x.CrimeType)
	if crime == "" && c.Fact != "" {
		crime, _ = IdentifyCrime(c.Fact)
	}
	x.CrimeType = firstNonEmpty(crime, p.config.DefaultCrime)

	region := c.Region
	if region == "" && c.Fact != "" {
		region = ExtractRegion(c.Fact)
	}
	if c.Amount != nil {
		x.Amount = c.Amount
	}
	if c.Count != nil {
		x.Count = c.Count
	}
	x.Severity = firstNonEmpty(c.Severity, x.Severity)
	return x.ToInput(c.ID, region)
}

func parse(raw []string) Extraction {
	var x Extraction
	var completed, attempted float64
	var haveCompleted, haveAttempted bool
	victims := 0
	cs := make([]facts.Circumstance, 0, len(raw))

	for _, r := range raw {
		label := Normalize(r)
		if label == "" {
			continue
		}

		switch {
		case amountRe.MatchString(label):
			m := amountRe.FindStringSubmatch(label)
			x.CrimeType = firstNonEmpty(x.CrimeType, crimeFor(m[1]))
			v := parseYuan(m[3], m[4])
			if m[2] == "未遂" {
				attempted += v
				haveAttempted = true
			} else {
				completed += v
				haveCompleted = true
			}

		case countRe.MatchString(label):
			m := countRe.FindStringSubmatch(label)
			x.CrimeType = firstNonEmpty(x.CrimeType, crimeFor(m[1]))
			n, _ := strconv.Atoi(m[2])
			x.Count = &n

		case injuryRe.MatchString(label):
			m := injuryRe.FindStringSubmatch(label)
			x.CrimeType = firstNonEmpty(x.CrimeType, "intentional_injury")
			n, _ := strconv.Atoi(m[1])
			victims += n
			x.Severity = worse(x.Severity, m[2]+m[3])

		case deathRe.MatchString(label):
			m := deathRe.FindStringSubmatch(label)
			x.CrimeType = firstNonEmpty(x.CrimeType, "intentional_injury")
			n, _ := strconv.Atoi(m[1])
			victims += n
			x.Severity = worse(x.Severity, "致人死亡")

		case severityRank[label] > 0:
			x.Severity = worse(x.Severity, label)

		case bandHintRe.MatchString(label):
			m := bandHintRe.FindStringSubmatch(label)
			x.CrimeType = firstNonEmpty(x.CrimeType, crimeFor(m[1]))
			x.Informational = append(x.Informational, label)

		case restitutionRe.MatchString(label):
			m := restitutionRe.FindStringSubmatch(label)
			v := parseYuan(m[2], m[3])
			cs = append(cs, facts.Circumstance{Tag: facts.Restitution, Amount: &v})

		case fullRestitution[label]:
			cs = append(cs, facts.Circumstance{Tag: facts.Restitution, Full: true})

		case informational[label]:
			x.Informational = append(x.Informational, label)

		default:
			tag, ok := facts.ParseTag(label)
			if !ok {
				x.Unrecognized = append(x.Unrecognized, label)
			}
			cs = append(cs, facts.Circumstance{Tag: tag})
		}
	}

	switch {
	case haveCompleted:
		v := completed
		x.Amount = &v
	case haveAttempted:
		v := attempted
		x.Amount = &v
		cs = append(cs, facts.Circumstance{Tag: facts.Attempt})
	}
	if victims > 0 && x.Count == nil {
		x.Count = &victims
	}
	x.Circumstances = mergeRestitution(cs)
	return x
}

// #endregion parser

// #region text-heuristics
// IdentifyCrime finds the charged crime in case text: the charge phrase
// first, then keywords anywhere in the text.
func IdentifyCrime(text string) (string, bool) {
	text = Normalize(text)
	if m := chargeRe.FindStringSubmatch(text); m != nil {
		if c := crimeFor(m[2]); c != "" {
			return c, true
		}
	}
	if c := crimeFor(text); c != "" {
		return c, true
	}
	return "", false
}

// ExtractRegion returns the place named by the procuratorate (公诉机关…人民检察院),
// then the registered residence, then an address that mentions a province,
// and finally the first province named anywhere in the text. The result is
// free text; the rule table resolves it to a region key.
func ExtractRegion(text string) string {
	text = strings.TrimSpace(width.Narrow.String(text))
	if m := procuratorRe.FindStringSubmatch(text); m != nil {
		if seg := strings.TrimSpace(m[1]); seg != "" {
			return seg
		}
	}
	if m := residenceRe.FindStringSubmatch(text); m != nil {
		if seg := strings.TrimSpace(m[1]); seg != "" {
			return seg
		}
	}
	if m := addressRe.FindStringSubmatch(text); m != nil {
		if seg := strings.TrimSpace(m[1]); firstProvince(seg) != "" {
			return seg
		}
	}
	return firstProvince(text)
}

// firstProvince returns the province name occurring earliest in s.
func firstProvince(s string) string {
	best, bestPos := "", -1
	for _, p := range provinces {
		if i := strings.Index(s, p); i >= 0 && (bestPos < 0 || i < bestPos) {
			best, bestPos = p, i
		}
	}
	return best
}

// Normalize folds full-width characters to their narrow forms and trims
// whitespace and thousands separators.
func Normalize(s string) string {
	s = width.Narrow.String(s)
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, ",", "")
}

// #endregion text-heuristics

// #region helpers
func crimeFor(s string) string {
	for _, cp := range crimePrefixes {
		if strings.Contains(s, cp.keyword) {
			return cp.crime
		}
	}
	return ""
}

func parseYuan(num, wan string) float64 {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if wan != "" {
		v *= 10000
	}
	return v
}

func worse(current, candidate string) string {
	if severityRank[candidate] > severityRank[current] {
		return candidate
	}
	return current
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// mergeRestitution sums restitution payloads so that several 退赔 labels
// count once with their total.
func mergeRestitution(cs []facts.Circumstance) []facts.Circumstance {
	var out []facts.Circumstance
	idx := -1
	for _, c := range cs {
		if c.Tag != facts.Restitution {
			out = append(out, c)
			continue
		}
		if idx < 0 {
			idx = len(out)
			out = append(out, c)
			continue
		}
		merged := out[idx]
		merged.Full = merged.Full || c.Full
		if c.Amount != nil {
			total := *c.Amount
			if merged.Amount != nil {
				total += *merged.Amount
			}
			merged.Amount = &total
		}
		out[idx] = merged
	}
	return out
}

// #endregion helpers
