// Package pipeline define el orden fijo de etapas del cultivo y la política
// de conservación de cada par de etapas adyacentes. La tabla de adyacencia es
// la única fuente de verdad: un handler nunca decide a qué etapa se convierte
// un lote ni bajo qué regla.
package pipeline

import (
	"github.com/clubverde/trazabilidad-api/internal/domain"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// Transition describe la arista permitida desde una etapa hacia su sucesora.
type Transition struct {
	From entity.Stage
	To   entity.Stage
	// Type selecciona la política de conservación (ver entity.Conversion*).
	Type string
}

// Orden del pipeline. Cada etapa tiene a lo sumo una sucesora.
var transitions = map[entity.Stage]Transition{
	entity.StageMotherPlant: {entity.StageMotherPlant, entity.StageCutting, entity.ConversionPropagation},
	entity.StageCutting:     {entity.StageCutting, entity.StageBlooming, entity.ConversionCount},
	entity.StageBlooming:    {entity.StageBlooming, entity.StageDrying, entity.ConversionHarvest},
	entity.StageDrying:      {entity.StageDrying, entity.StageProcessing, entity.ConversionLossyWeight},
	entity.StageProcessing:  {entity.StageProcessing, entity.StageLabTesting, entity.ConversionLossyWeight},
	entity.StageLabTesting:  {entity.StageLabTesting, entity.StagePackaging, entity.ConversionSampled},
	entity.StagePackaging:   {entity.StagePackaging, entity.StageDistribution, entity.ConversionCount},
}

// Next devuelve la transición definida desde la etapa dada.
// ErrInvalidTransition si la etapa es final o desconocida.
func Next(from entity.Stage) (Transition, error) {
	t, ok := transitions[from]
	if !ok {
		return Transition{}, domain.ErrInvalidTransition
	}
	return t, nil
}

// Validate verifica que el par (from, to) sea exactamente la arista definida.
func Validate(from, to entity.Stage) (Transition, error) {
	t, err := Next(from)
	if err != nil {
		return Transition{}, err
	}
	if t.To != to {
		return Transition{}, domain.ErrInvalidTransition
	}
	return t, nil
}

// ConsumesSource indica si la conversión decrementa la cantidad activa del
// lote origen. La propagación (madres -> esquejes) es la única que no lo hace:
// las plantas madre siguen vivas después de tomar esquejes.
func (t Transition) ConsumesSource() bool {
	return t.Type != entity.ConversionPropagation
}

// Lossy indica si la política admite merma de peso (secado, procesamiento).
// La merma se asienta como destrucción propia, nunca desaparece en silencio.
func (t Transition) Lossy() bool {
	return t.Type == entity.ConversionLossyWeight
}
