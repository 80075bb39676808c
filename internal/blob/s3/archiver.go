package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/predmarket/marketd/internal/domain"
)

// minPartSize is the minimum allowed part size for S3 multipart uploads
// (5 MiB).
const minPartSize int64 = 5 * 1024 * 1024

// Archiver implements domain.SettlementArchiver. Each resolved market gets
// one immutable JSON object under settlements/. The audit log export is a
// separate bulk path for operational snapshots.
type Archiver struct {
	client *Client
	audit  domain.AuditStore
}

// NewArchiver creates an Archiver. audit may be nil to skip audit records.
func NewArchiver(client *Client, audit domain.AuditStore) *Archiver {
	return &Archiver{client: client, audit: audit}
}

// ArchiveResolution uploads the settlement report for a resolved market to
// settlements/<market-id>.json.
func (a *Archiver) ArchiveResolution(ctx context.Context, report domain.SettlementReport) error {
	buf, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("s3blob: marshal settlement report %s: %w", report.MarketID, err)
	}

	key := "settlements/" + report.MarketID + ".json"
	_, err = a.client.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put settlement report %s: %w", key, err)
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.settlement", map[string]any{
			"market_id": report.MarketID,
			"key":       key,
		}); err != nil {
			return fmt.Errorf("s3blob: settlement archive audit log: %w", err)
		}
	}
	return nil
}

// ExportAuditLog serializes the given audit entries to JSONL and uploads the
// snapshot via the multipart upload manager. The object key embeds the
// snapshot month so repeated exports overwrite the current month only.
func (a *Archiver) ExportAuditLog(ctx context.Context, entries []domain.AuditEntry, at time.Time) error {
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("s3blob: marshal audit entry %d: %w", e.ID, err)
		}
	}

	uploader := manager.NewUploader(a.client.s3, func(u *manager.Uploader) {
		u.PartSize = minPartSize
	})
	key := "audit/" + at.UTC().Format("2006-01") + ".jsonl"
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.bucket),
		Key:         aws.String(key),
		Body:        &buf,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: upload audit snapshot %s: %w", key, err)
	}
	return nil
}
