// Package report genera los artefactos de cumplimiento sobre el ledger:
// manifiesto XML canónico de destrucciones, certificado PDF por asiento y
// exportación del ledger completo a Excel.
package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/clubverde/trazabilidad-api/internal/application/trace"
)

// Namespace del manifiesto de destrucciones.
const NsManifest = "urn:clubverde:trazabilidad:destruction-manifest:v1"

// ManifestBuilder construye el manifiesto XML de destrucciones. La huella se
// calcula sobre la forma canónica (C14N) del documento, de modo que un auditor
// pueda verificar integridad independientemente del formateo.
type ManifestBuilder struct{}

// NewManifestBuilder crea el builder.
func NewManifestBuilder() *ManifestBuilder { return &ManifestBuilder{} }

// Build implementa trace.ManifestBuilder.
func (b *ManifestBuilder) Build(generatedAt time.Time, entries []trace.DestructionReportEntry) ([]byte, string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("DestructionManifest")
	root.CreateAttr("xmlns", NsManifest)
	root.CreateElement("GeneratedAt").SetText(generatedAt.UTC().Format(time.RFC3339))
	root.CreateElement("RecordCount").SetText(strconv.Itoa(len(entries)))

	records := root.CreateElement("Records")
	for _, e := range entries {
		writeDestruction(records, e)
	}

	doc.Indent(2)
	xmlBytes, err := doc.WriteToBytes()
	if err != nil {
		return nil, "", fmt.Errorf("report: serializar manifiesto: %w", err)
	}

	fingerprint, err := Fingerprint(xmlBytes)
	if err != nil {
		return nil, "", err
	}
	return xmlBytes, fingerprint, nil
}

func writeDestruction(parent *etree.Element, e trace.DestructionReportEntry) {
	rec := parent.CreateElement("Destruction")
	rec.CreateAttr("id", e.Record.ID)

	rec.CreateElement("BatchID").SetText(e.Record.BatchID)
	if e.Batch != nil {
		rec.CreateElement("ChargeNumber").SetText(e.Batch.ChargeNumber)
		rec.CreateElement("Stage").SetText(string(e.Batch.Stage))
		rec.CreateElement("Strain").SetText(e.Batch.Strain)
		if e.Batch.ProductType != "" {
			rec.CreateElement("ProductType").SetText(e.Batch.ProductType)
		}
	}

	qty := rec.CreateElement("Quantity")
	qty.SetText(e.Record.Quantity.String())
	if e.Batch != nil {
		qty.CreateAttr("measure", string(e.Batch.Stage.Measure()))
	}

	if len(e.Record.UnitIDs) > 0 {
		units := rec.CreateElement("Units")
		units.CreateAttr("count", strconv.Itoa(len(e.Record.UnitIDs)))
		for _, id := range e.Record.UnitIDs {
			units.CreateElement("UnitID").SetText(id)
		}
	}

	rec.CreateElement("Reason").SetText(e.Record.Reason)

	auth := rec.CreateElement("AuthorizedBy")
	auth.CreateAttr("memberId", e.Record.AuthorizedBy)
	if e.AuthorizedBy != nil {
		auth.SetText(e.AuthorizedBy.DisplayName)
	}

	rec.CreateElement("DestroyedAt").SetText(e.Record.DestroyedAt.UTC().Format(time.RFC3339))
}

// Fingerprint devuelve el SHA-256 (hex) de la forma canónica C14N del documento.
func Fingerprint(xmlBytes []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	dec.Entity = map[string]string{}
	canonical, err := c14n.Canonicalize(dec)
	if err != nil {
		return "", fmt.Errorf("report: canonicalizar manifiesto: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Asegurar que ManifestBuilder implementa el puerto.
var _ trace.ManifestBuilder = (*ManifestBuilder)(nil)
