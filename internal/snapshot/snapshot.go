// Package snapshot exports a tenant's roster (points, subjects,
// published coordinates) to S3 as a durability backstop independent
// of whichever appstore.Store backend is in use — useful when running
// on appstore.Memory, where a restart otherwise loses everything.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/geomesh/proximity/internal/appstore"
)

// Roster is the exported shape of one tenant's points.
type Roster struct {
	App       string          `json:"app"`
	ExportedAt time.Time      `json:"exported_at"`
	Points    []PointSnapshot `json:"points"`
}

// PointSnapshot is one point's subjects and last published coord.
type PointSnapshot struct {
	PointID  string              `json:"point_id"`
	Subjects []appstore.Subject  `json:"subjects"`
	Coord    *appstore.PointCoord `json:"coord,omitempty"`
}

// Store writes and reads roster snapshots to S3.
type Store struct {
	client *s3.Client
	bucket string
}

// NewStore loads the default AWS config chain (env vars, shared
// config, IAM role) and targets bucket in region.
func NewStore(ctx context.Context, bucket, region string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("snapshot: load aws config: %w", err)
	}
	return &Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func objectKey(app string) string {
	return fmt.Sprintf("rosters/%s.json", app)
}

// Export writes roster as a JSON object keyed by tenant.
func (s *Store) Export(ctx context.Context, roster Roster) error {
	data, err := json.Marshal(roster)
	if err != nil {
		return fmt.Errorf("snapshot: marshal roster: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(roster.App)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("snapshot: put object: %w", err)
	}
	return nil
}

// Import reads back a previously exported roster.
func (s *Store) Import(ctx context.Context, app string) (Roster, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(app)),
	})
	if err != nil {
		return Roster{}, fmt.Errorf("snapshot: get object: %w", err)
	}
	defer out.Body.Close()

	var roster Roster
	if err := json.NewDecoder(out.Body).Decode(&roster); err != nil {
		return Roster{}, fmt.Errorf("snapshot: decode roster: %w", err)
	}
	return roster, nil
}

// BuildRoster assembles a Roster for app from a Store by resolving
// each pointID's subjects and coordinate.
func BuildRoster(ctx context.Context, store appstore.Store, app string, pointIDs []string, now time.Time) (Roster, error) {
	coords, err := store.GetPointsCoords(ctx, app, pointIDs)
	if err != nil {
		return Roster{}, err
	}
	coordByID := make(map[string]appstore.PointCoord, len(coords))
	for _, c := range coords {
		coordByID[c.PointID] = c
	}

	points := make([]PointSnapshot, 0, len(pointIDs))
	for _, id := range pointIDs {
		subjects, err := store.GetPointSubjects(ctx, app, id)
		if err != nil {
			return Roster{}, err
		}
		ps := PointSnapshot{PointID: id, Subjects: subjects}
		if c, ok := coordByID[id]; ok {
			ps.Coord = &c
		}
		points = append(points, ps)
	}

	return Roster{App: app, ExportedAt: now, Points: points}, nil
}
