package entity

// Stage es una etapa fija del pipeline de cultivo. Un lote nace en una etapa
// y nunca la abandona; avanzar de etapa siempre crea un lote nuevo.
type Stage string

const (
	StageMotherPlant  Stage = "motherplant"
	StageCutting      Stage = "cutting"
	StageBlooming     Stage = "blooming"
	StageDrying       Stage = "drying"
	StageProcessing   Stage = "processing"
	StageLabTesting   Stage = "labtesting"
	StagePackaging    Stage = "packaging"
	StageDistribution Stage = "distribution"
)

// Medida autoritativa de la cantidad de un lote según su etapa.
type Measure string

const (
	MeasureUnits  Measure = "units" // plantas, esquejes, envases
	MeasureWeight Measure = "grams" // peso en gramos (decimal)
)

// Measure devuelve la medida en la que se conservan las cantidades del lote.
func (s Stage) Measure() Measure {
	switch s {
	case StageMotherPlant, StageCutting, StageBlooming, StagePackaging:
		return MeasureUnits
	default:
		return MeasureWeight
	}
}

// UnitGranular indica si la etapa rastrea unidades individuales (tabla units).
func (s Stage) UnitGranular() bool {
	switch s {
	case StageMotherPlant, StageCutting, StageBlooming, StagePackaging:
		return true
	default:
		return false
	}
}

// Valid indica si el string corresponde a una etapa conocida.
func (s Stage) Valid() bool {
	switch s {
	case StageMotherPlant, StageCutting, StageBlooming, StageDrying,
		StageProcessing, StageLabTesting, StagePackaging, StageDistribution:
		return true
	}
	return false
}
