package features

import "github.com/okian/ntag/internal/domain/model"

// SchemaVersion identifies the feature set below. Classifier models are
// trained against one version and must reject others.
const SchemaVersion = "ntag-features/v1"

// DelayedSchema is the output column order for delayed candidates.
var DelayedSchema = []string{
	model.FeatureNHits, model.FeatureN50, model.FeatureN200, model.FeatureN1300,
	model.FeatureReconCT, model.FeatureTRMS, model.FeatureQSum,
	model.FeatureBeta1, model.FeatureBeta2, model.FeatureBeta3, model.FeatureBeta4, model.FeatureBeta5,
	model.FeatureAngleMean, model.FeatureAngleSkew, model.FeatureAngleStdev, model.FeatureLabel,
	model.FeatureDWall, model.FeatureDWallMeanDir, model.FeatureThetaMeanDir,
	model.FeatureDWallN, model.FeaturePromptNFit,
	model.FeatureScore, model.FeatureTagIndex, model.FeatureTagClass,
}

// EarlySchema is the output column order for early candidates.
var EarlySchema = []string{
	model.FeatureReconCT, model.FeatureX, model.FeatureY, model.FeatureZ, model.FeatureDWall,
	model.FeatureDirX, model.FeatureDirY, model.FeatureDirZ,
	model.FeatureNHits, model.FeatureGateType, model.FeatureGoodness,
	model.FeatureLabel, model.FeatureTagIndex, model.FeatureTagClass,
}

// ClassifierInputs are the features a Classifier reads, in model order.
var ClassifierInputs = []string{
	model.FeatureAngleMean, model.FeatureAngleSkew, model.FeatureAngleStdev,
	model.FeatureBeta1, model.FeatureBeta2, model.FeatureBeta3, model.FeatureBeta4, model.FeatureBeta5,
	model.FeatureDWall, model.FeatureDWallMeanDir, model.FeatureDWallN,
	model.FeatureN200, model.FeatureNHits, model.FeatureTRMS,
	model.FeatureThetaMeanDir, model.FeaturePromptNFit,
}
