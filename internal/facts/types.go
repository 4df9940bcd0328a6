package facts

// #region tag
// Tag names a sentencing circumstance from the closed vocabulary.
type Tag string

// Tier-1 circumstances reduce the sentence by a discrete level and chain multiplicatively.
const (
	MinorOffender      Tag = "minor_offender"
	Accessory          Tag = "accessory"
	CoercedParticipant Tag = "coerced_participant"
	PreparationOnly    Tag = "preparation_only"
	Abandonment        Tag = "abandonment"
	Attempt            Tag = "attempt"
	ExcessiveDefense   Tag = "excessive_defense"
	ExcessiveNecessity Tag = "excessive_necessity"
)

// Tier-2 circumstances add or subtract a share of the post-tier-1 value.
const (
	Recidivism              Tag = "recidivism"
	VoluntarySurrender      Tag = "voluntary_surrender"
	TruthfulConfession      Tag = "truthful_confession"
	MeritoriousService      Tag = "meritorious_service"
	MajorMeritoriousService Tag = "major_meritorious_service"
	PleaAndAcceptance       Tag = "plea_and_acceptance"
	Restitution             Tag = "restitution"
	VictimForgiveness       Tag = "victim_forgiveness"
	PriorRecord             Tag = "prior_record"
	RepeatedOffense         Tag = "repeated_offense"
	Burglary                Tag = "burglary"
	Armed                   Tag = "armed"
	Pickpocketing           Tag = "pickpocketing"
	Principal               Tag = "principal"
	VulnerableVictim        Tag = "vulnerable_victim"
	DisasterPeriod          Tag = "disaster_period"
	InstigatingMinor        Tag = "instigating_minor"
	VictimFault             Tag = "victim_fault"
	TelecomFraud            Tag = "telecom_fraud"
	CruelMeans              Tag = "cruel_means"
	VitalArea               Tag = "vital_area"
	PublicPlace             Tag = "public_place"
)

// #endregion tag

// #region labels
// chineseLabels maps each known tag to its courtroom label. Extra aliases
// follow the primary label.
var chineseLabels = map[Tag][]string{
	MinorOffender:           {"未成年人犯罪", "未成年人", "未成年"},
	Accessory:               {"从犯"},
	CoercedParticipant:      {"胁从犯"},
	PreparationOnly:         {"犯罪预备"},
	Abandonment:             {"犯罪中止"},
	Attempt:                 {"犯罪未遂", "未遂"},
	ExcessiveDefense:        {"防卫过当"},
	ExcessiveNecessity:      {"避险过当"},
	Recidivism:              {"累犯"},
	VoluntarySurrender:      {"自首"},
	TruthfulConfession:      {"坦白", "当庭自愿认罪"},
	MeritoriousService:      {"立功"},
	MajorMeritoriousService: {"重大立功"},
	PleaAndAcceptance:       {"认罪认罚"},
	Restitution:             {"退赔", "退赃", "赔偿", "退赔全部损失"},
	VictimForgiveness:       {"取得谅解", "谅解"},
	PriorRecord:             {"前科"},
	RepeatedOffense:         {"多次盗窃", "多次诈骗", "多次伤害", "多次犯罪"},
	Burglary:                {"入户盗窃"},
	Armed:                   {"携带凶器盗窃", "使用刀具", "持械"},
	Pickpocketing:           {"扒窃"},
	Principal:               {"主犯"},
	VulnerableVictim:        {"针对弱势群体", "弱势群体"},
	DisasterPeriod:          {"重大灾害期间"},
	InstigatingMinor:        {"教唆未成年人"},
	VictimFault:             {"被害人过错"},
	TelecomFraud:            {"电信网络诈骗"},
	CruelMeans:              {"手段特别残忍"},
	VitalArea:               {"伤害要害部位"},
	PublicPlace:             {"在公共场所作案", "公共场所"},
}

// #endregion labels

// #region circumstance
// Circumstance is one tag plus its optional numeric payload.
type Circumstance struct {
	Tag    Tag      `json:"tag"`
	Amount *float64 `json:"amount,omitempty"` // e.g. restitution paid in yuan
	Count  *int     `json:"count,omitempty"`
	Full   bool     `json:"full,omitempty"` // payload covers the whole loss
}

// #endregion circumstance
