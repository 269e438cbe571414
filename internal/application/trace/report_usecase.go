package trace

import (
	"context"
	"time"

	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
	"github.com/clubverde/trazabilidad-api/internal/domain/repository"
)

// DestructionReportEntry asiento de destrucción enriquecido con el lote y el
// miembro que autorizó, para los reportes de cumplimiento. Batch y AuthorizedBy
// pueden ser nil si el registro referencia datos ya no resolubles.
type DestructionReportEntry struct {
	Record       *entity.DestructionRecord
	Batch        *entity.Batch
	AuthorizedBy *entity.Member
}

// ManifestBuilder construye el manifiesto XML canónico de destrucciones y su
// huella de integridad. Implementado en infraestructura (etree + C14N).
type ManifestBuilder interface {
	Build(generatedAt time.Time, entries []DestructionReportEntry) (xmlDoc []byte, fingerprint string, err error)
}

// CertificateGenerator genera el certificado PDF de una destrucción.
type CertificateGenerator interface {
	GenerateDestructionCertificate(ctx context.Context, entry DestructionReportEntry) ([]byte, error)
}

// LedgerExporter exporta el ledger completo (conversiones + destrucciones)
// como libro de Excel.
type LedgerExporter interface {
	Export(conversions []*entity.ConversionRecord, destructions []*entity.DestructionRecord) ([]byte, error)
}

// ReportUseCase reportes de cumplimiento sobre el ledger inmutable. Solo
// lectura: ningún reporte muta estado.
type ReportUseCase struct {
	ledger   repository.LedgerRepository
	batches  repository.BatchRepository
	members  repository.MemberRepository
	manifest ManifestBuilder
	certs    CertificateGenerator
	exporter LedgerExporter
}

// NewReportUseCase crea el caso de uso de reportes.
func NewReportUseCase(
	ledger repository.LedgerRepository,
	batches repository.BatchRepository,
	members repository.MemberRepository,
	manifest ManifestBuilder,
	certs CertificateGenerator,
	exporter LedgerExporter,
) *ReportUseCase {
	return &ReportUseCase{
		ledger:   ledger,
		batches:  batches,
		members:  members,
		manifest: manifest,
		certs:    certs,
		exporter: exporter,
	}
}

// DestructionManifest genera el manifiesto XML de destrucciones del rango de
// fechas indicado (nil = sin límite) junto con su huella C14N SHA-256.
func (uc *ReportUseCase) DestructionManifest(ctx context.Context, from, to *time.Time) ([]byte, string, error) {
	records, err := uc.ledger.ListDestructions(ctx, from, to)
	if err != nil {
		return nil, "", err
	}
	entries := make([]DestructionReportEntry, 0, len(records))
	for _, rec := range records {
		entry, err := uc.enrich(ctx, rec)
		if err != nil {
			return nil, "", err
		}
		entries = append(entries, entry)
	}
	return uc.manifest.Build(time.Now(), entries)
}

// DestructionCertificate genera el certificado PDF de un asiento de destrucción.
func (uc *ReportUseCase) DestructionCertificate(ctx context.Context, destructionID string) ([]byte, error) {
	rec, err := uc.ledger.GetDestruction(ctx, destructionID)
	if err != nil {
		return nil, err
	}
	entry, err := uc.enrich(ctx, rec)
	if err != nil {
		return nil, err
	}
	return uc.certs.GenerateDestructionCertificate(ctx, entry)
}

// LedgerWorkbook exporta el ledger completo del rango indicado como .xlsx.
func (uc *ReportUseCase) LedgerWorkbook(ctx context.Context, from, to *time.Time) ([]byte, error) {
	conversions, err := uc.ledger.ListConversions(ctx, from, to)
	if err != nil {
		return nil, err
	}
	destructions, err := uc.ledger.ListDestructions(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return uc.exporter.Export(conversions, destructions)
}

// enrich resuelve lote y miembro del asiento. Un lote o miembro desaparecido
// no invalida el reporte: el campo queda nil y el reporte lo marca como tal.
func (uc *ReportUseCase) enrich(ctx context.Context, rec *entity.DestructionRecord) (DestructionReportEntry, error) {
	entry := DestructionReportEntry{Record: rec}

	batch, err := uc.batches.GetByID(ctx, rec.BatchID)
	if err != nil {
		return entry, err
	}
	entry.Batch = batch

	member, err := uc.members.GetByID(ctx, rec.AuthorizedBy)
	if err != nil {
		return entry, err
	}
	entry.AuthorizedBy = member
	return entry, nil
}
