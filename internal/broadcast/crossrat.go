package broadcast

// GSM (3GPP TS 23.041) CMAS message identifiers.
const (
	GsmAlertPresidential                 = 4370
	GsmAlertExtremeImmediateObserved     = 4371
	GsmAlertExtremeImmediateLikely       = 4372
	GsmAlertExtremeExpectedObserved      = 4373
	GsmAlertExtremeExpectedLikely        = 4374
	GsmAlertSevereImmediateObserved      = 4375
	GsmAlertSevereImmediateLikely        = 4376
	GsmAlertSevereExpectedObserved       = 4377
	GsmAlertSevereExpectedLikely         = 4378
	GsmAlertChildAbduction               = 4379
	GsmAlertMonthlyTest                  = 4380
	GsmAlertPresidentialLanguage         = 4383
	GsmAlertExtremeImmediateObservedLang = 4384
	GsmAlertExtremeImmediateLikelyLang   = 4385
	GsmAlertExtremeExpectedObservedLang  = 4386
	GsmAlertExtremeExpectedLikelyLang    = 4387
	GsmAlertSevereImmediateObservedLang  = 4388
	GsmAlertSevereImmediateLikelyLang    = 4389
	GsmAlertSevereExpectedObservedLang   = 4390
	GsmAlertSevereExpectedLikelyLang     = 4391
	GsmAlertChildAbductionLanguage       = 4392
	GsmAlertMonthlyTestLanguage          = 4393
)

// CDMA (3GPP2 C.R1001) CMAS service categories.
const (
	CdmaCategoryPresidential   = 4096
	CdmaCategoryExtremeThreat  = 4097
	CdmaCategorySevereThreat   = 4098
	CdmaCategoryChildAbduction = 4099
	CdmaCategoryTestMessage    = 4100
)

// CrossRATMap returns the service category equivalence map used by duplicate
// detection. Keys are GSM message identifiers, values the CDMA category
// carrying the same alert class. Carriers may rebroadcast the same alert on
// both technologies, so detection compares categories across the map in both
// directions. The map is built once at startup and never mutated.
func CrossRATMap() map[int]int {
	return map[int]int{
		// Presidential alert.
		GsmAlertPresidential:         CdmaCategoryPresidential,
		GsmAlertPresidentialLanguage: CdmaCategoryPresidential,

		// Extreme alert.
		GsmAlertExtremeImmediateObserved:     CdmaCategoryExtremeThreat,
		GsmAlertExtremeImmediateObservedLang: CdmaCategoryExtremeThreat,
		GsmAlertExtremeImmediateLikely:       CdmaCategoryExtremeThreat,
		GsmAlertExtremeImmediateLikelyLang:   CdmaCategoryExtremeThreat,

		// Severe alert. Expected-severity extreme alerts map here as well.
		GsmAlertExtremeExpectedObserved:     CdmaCategorySevereThreat,
		GsmAlertExtremeExpectedObservedLang: CdmaCategorySevereThreat,
		GsmAlertExtremeExpectedLikely:       CdmaCategorySevereThreat,
		GsmAlertExtremeExpectedLikelyLang:   CdmaCategorySevereThreat,
		GsmAlertSevereImmediateObserved:     CdmaCategorySevereThreat,
		GsmAlertSevereImmediateObservedLang: CdmaCategorySevereThreat,
		GsmAlertSevereImmediateLikely:       CdmaCategorySevereThreat,
		GsmAlertSevereImmediateLikelyLang:   CdmaCategorySevereThreat,
		GsmAlertSevereExpectedObserved:      CdmaCategorySevereThreat,
		GsmAlertSevereExpectedObservedLang:  CdmaCategorySevereThreat,
		GsmAlertSevereExpectedLikely:        CdmaCategorySevereThreat,
		GsmAlertSevereExpectedLikelyLang:    CdmaCategorySevereThreat,

		// Amber alert.
		GsmAlertChildAbduction:         CdmaCategoryChildAbduction,
		GsmAlertChildAbductionLanguage: CdmaCategoryChildAbduction,

		// Monthly test alert.
		GsmAlertMonthlyTest:         CdmaCategoryTestMessage,
		GsmAlertMonthlyTestLanguage: CdmaCategoryTestMessage,
	}
}
