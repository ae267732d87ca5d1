package model

// Feature names shared by the extractor, the classifier and the output.
const (
	FeatureNHits        = "NHits"
	FeatureN50          = "N50"
	FeatureN200         = "N200"
	FeatureN1300        = "N1300"
	FeatureReconCT      = "ReconCT" // µs
	FeatureTRMS         = "TRMS"
	FeatureQSum         = "QSum"
	FeatureBeta1        = "Beta1"
	FeatureBeta2        = "Beta2"
	FeatureBeta3        = "Beta3"
	FeatureBeta4        = "Beta4"
	FeatureBeta5        = "Beta5"
	FeatureAngleMean    = "AngleMean"
	FeatureAngleStdev   = "AngleStdev"
	FeatureAngleSkew    = "AngleSkew"
	FeatureDWall        = "DWall"
	FeatureDWallMeanDir = "DWallMeanDir"
	FeatureThetaMeanDir = "ThetaMeanDir"
	FeatureDWallN       = "DWall_n"
	FeaturePromptNFit   = "prompt_nfit"
	FeatureScore        = "TMVAOutput"
	FeatureLabel        = "Label"
	FeatureTagIndex     = "TagIndex"
	FeatureTagClass     = "TagClass"

	FeatureX        = "x"
	FeatureY        = "y"
	FeatureZ        = "z"
	FeatureDirX     = "dirx"
	FeatureDirY     = "diry"
	FeatureDirZ     = "dirz"
	FeatureGateType = "GateType"
	FeatureGoodness = "Goodness"
)

// FeatureMap holds the named scalar features of one candidate.
type FeatureMap map[string]float64

// Get returns the named feature, or fallback when it is absent.
func (m FeatureMap) Get(name string, fallback float64) float64 {
	if v, ok := m[name]; ok {
		return v
	}
	return fallback
}

// Has reports whether the feature is present.
func (m FeatureMap) Has(name string) bool {
	_, ok := m[name]
	return ok
}

// Clone returns an independent copy.
func (m FeatureMap) Clone() FeatureMap {
	out := make(FeatureMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
