package dto

import "github.com/shopspring/decimal"

// Agregados por etapa para los contadores de las pestañas de la UI. Los
// nombres de campo son parte del contrato: cada vista los lee tal cual.

// MotherCountsResponse /motherbatches/counts/?type=active|destroyed.
type MotherCountsResponse struct {
	BatchesCount int64 `json:"batches_count"`
	PlantsCount  int64 `json:"plants_count"`
}

// MotherCuttingCountsResponse /motherbatches/counts/?type=cutting: esquejes
// propagados desde madres.
type MotherCuttingCountsResponse struct {
	BatchCount   int64 `json:"batch_count"`
	CuttingCount int64 `json:"cutting_count"`
}

// CuttingCountsResponse /cuttingbatches/counts/?type=all.
type CuttingCountsResponse struct {
	ActiveBatchesCount    int64 `json:"active_batches_count"`
	ActiveCount           int64 `json:"active_count"`
	DestroyedBatchesCount int64 `json:"destroyed_batches_count"`
	DestroyedCount        int64 `json:"destroyed_count"`
	ConvertedBatchesCount int64 `json:"converted_batches_count"`
	ConvertedCount        int64 `json:"converted_count"`
}

// BloomingCountsResponse /bloomingbatches/counts/.
type BloomingCountsResponse struct {
	ActiveBatchesCount    int64 `json:"active_batches_count"`
	ActivePlantsCount     int64 `json:"active_plants_count"`
	DestroyedBatchesCount int64 `json:"destroyed_batches_count"`
	DestroyedPlantsCount  int64 `json:"destroyed_plants_count"`
	HarvestedBatchesCount int64 `json:"harvested_batches_count"`
	HarvestedPlantsCount  int64 `json:"harvested_plants_count"`
}

// DryingCountsResponse /drying/counts/.
type DryingCountsResponse struct {
	ActiveCount                 int64           `json:"active_count"`
	TotalActiveInitialWeight    decimal.Decimal `json:"total_active_initial_weight"`
	TotalActiveFinalWeight      decimal.Decimal `json:"total_active_final_weight"`
	ProcessedCount              int64           `json:"processed_count"`
	ProcessedWeight             decimal.Decimal `json:"processed_weight"`
	DestroyedCount              int64           `json:"destroyed_count"`
	TotalDestroyedInitialWeight decimal.Decimal `json:"total_destroyed_initial_weight"`
}

// ProcessingCountsResponse /processing/counts/.
type ProcessingCountsResponse struct {
	ActiveCount                int64           `json:"active_count"`
	TotalActiveInputWeight     decimal.Decimal `json:"total_active_input_weight"`
	TotalActiveOutputWeight    decimal.Decimal `json:"total_active_output_weight"`
	MarijuanaCount             int64           `json:"marijuana_count"`
	MarijuanaWeight            decimal.Decimal `json:"marijuana_weight"`
	HashishCount               int64           `json:"hashish_count"`
	HashishWeight              decimal.Decimal `json:"hashish_weight"`
	DestroyedCount             int64           `json:"destroyed_count"`
	TotalDestroyedOutputWeight decimal.Decimal `json:"total_destroyed_output_weight"`
}

// LabTestingCountsResponse /labtesting/counts/.
type LabTestingCountsResponse struct {
	PendingCount       int64           `json:"pending_count"`
	TotalPendingWeight decimal.Decimal `json:"total_pending_weight"`
	PassedCount        int64           `json:"passed_count"`
	TotalPassedWeight  decimal.Decimal `json:"total_passed_weight"`
	FailedCount        int64           `json:"failed_count"`
	TotalFailedWeight  decimal.Decimal `json:"total_failed_weight"`
	DestroyedCount     int64           `json:"destroyed_count"`
}

// PackagingCountsResponse /packaging/counts/.
type PackagingCountsResponse struct {
	ActiveCount       int64           `json:"active_count"`
	TotalActiveWeight decimal.Decimal `json:"total_active_weight"`
	TotalActiveUnits  int64           `json:"total_active_units"`
	MarijuanaCount    int64           `json:"marijuana_count"`
	MarijuanaWeight   decimal.Decimal `json:"marijuana_weight"`
	MarijuanaUnits    int64           `json:"marijuana_units"`
	HashishCount      int64           `json:"hashish_count"`
	HashishWeight     decimal.Decimal `json:"hashish_weight"`
	HashishUnits      int64           `json:"hashish_units"`
}
