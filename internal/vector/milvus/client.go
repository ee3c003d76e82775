package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/internal/knowledge"
	"github.com/knowledge-gate/backend/pkg/logger"
)

// Client wraps one Milvus collection holding knowledge entries. The
// embedding field uses the IP metric, so search scores are cosine
// similarity for the normalized vectors the embedding service returns.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewClient(endpoint, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		logger.Info("collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "engineering knowledge entries",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "embedding",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", m.vectorDim)},
			},
			{
				Name:       "content",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "65535"},
			},
			{
				Name:       "type",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "tags",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "2048"},
			},
			{
				Name:       "source",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "file_paths",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "4096"},
			},
			{
				Name:     "created_at",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.IP, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index config: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("collection created and loaded", zap.String("collection", m.collectionName))
	return nil
}

func (m *Client) Insert(ctx context.Context, e knowledge.Entry, embedding []float32) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	filePaths, err := json.Marshal(e.FilePaths)
	if err != nil {
		return fmt.Errorf("failed to marshal file paths: %w", err)
	}

	_, err = m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("id", []string{e.ID}),
		entity.NewColumnFloatVector("embedding", m.vectorDim, [][]float32{embedding}),
		entity.NewColumnVarChar("content", []string{e.Content}),
		entity.NewColumnVarChar("type", []string{e.Type}),
		entity.NewColumnVarChar("tags", []string{string(tags)}),
		entity.NewColumnVarChar("source", []string{e.Source}),
		entity.NewColumnVarChar("file_paths", []string{string(filePaths)}),
		entity.NewColumnInt64("created_at", []int64{e.CreatedAt.Unix()}),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	if err := m.client.Flush(ctx, m.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Debug("entry inserted into vector store", zap.String("id", e.ID))
	return nil
}

var outputFields = []string{"id", "content", "type", "tags", "source", "file_paths", "created_at"}

func (m *Client) Search(ctx context.Context, embedding []float32, typeFilter string, limit int) ([]knowledge.SearchResult, error) {
	expr := ""
	if typeFilter != "" {
		expr = fmt.Sprintf(`type == "%s"`, typeFilter)
	}

	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		outputFields,
		[]entity.Vector{entity.FloatVector(embedding)},
		"embedding",
		entity.IP,
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]knowledge.SearchResult, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			e, err := entryFromColumns(sr.Fields, i)
			if err != nil {
				return nil, err
			}
			results = append(results, knowledge.SearchResult{
				Entry: e,
				Score: sr.Scores[i],
			})
		}
	}

	logger.Debug("vector search completed",
		zap.Int("limit", limit),
		zap.Int("results", len(results)),
		zap.String("filter", expr),
	)
	return results, nil
}

func (m *Client) GetByID(ctx context.Context, id string) (*knowledge.Entry, error) {
	rs, err := m.client.Query(
		ctx,
		m.collectionName,
		[]string{},
		fmt.Sprintf(`id == "%s"`, id),
		outputFields,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry: %w", err)
	}

	entries, err := entriesFromResultSet(rs)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (m *Client) QueryByFilePath(ctx context.Context, filePath string, limit int) ([]knowledge.Entry, error) {
	// file_paths is stored as a JSON array, so match the quoted element.
	rs, err := m.client.Query(
		ctx,
		m.collectionName,
		[]string{},
		fmt.Sprintf(`file_paths like '%%"%s"%%'`, filePath),
		outputFields,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query by file path: %w", err)
	}

	entries, err := entriesFromResultSet(rs)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *Client) Delete(ctx context.Context, id string) error {
	err := m.client.DeleteByPks(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("id", []string{id}),
	)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	logger.Debug("entry deleted from vector store", zap.String("id", id))
	return nil
}

type columnSet interface {
	GetColumn(name string) entity.Column
}

func entriesFromResultSet(rs client.ResultSet) ([]knowledge.Entry, error) {
	idCol := rs.GetColumn("id")
	if idCol == nil {
		return nil, nil
	}

	entries := make([]knowledge.Entry, 0, idCol.Len())
	for i := 0; i < idCol.Len(); i++ {
		e, err := entryFromColumns(rs, i)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func entryFromColumns(cols columnSet, i int) (knowledge.Entry, error) {
	var e knowledge.Entry

	id, err := cols.GetColumn("id").Get(i)
	if err != nil {
		return e, fmt.Errorf("failed to read id column: %w", err)
	}
	content, err := cols.GetColumn("content").Get(i)
	if err != nil {
		return e, fmt.Errorf("failed to read content column: %w", err)
	}
	typeName, err := cols.GetColumn("type").Get(i)
	if err != nil {
		return e, fmt.Errorf("failed to read type column: %w", err)
	}
	tagsRaw, err := cols.GetColumn("tags").Get(i)
	if err != nil {
		return e, fmt.Errorf("failed to read tags column: %w", err)
	}
	source, err := cols.GetColumn("source").Get(i)
	if err != nil {
		return e, fmt.Errorf("failed to read source column: %w", err)
	}
	filePathsRaw, err := cols.GetColumn("file_paths").Get(i)
	if err != nil {
		return e, fmt.Errorf("failed to read file_paths column: %w", err)
	}
	createdAt, err := cols.GetColumn("created_at").Get(i)
	if err != nil {
		return e, fmt.Errorf("failed to read created_at column: %w", err)
	}

	e.ID = id.(string)
	e.Content = content.(string)
	e.Type = typeName.(string)
	e.Source = source.(string)
	e.CreatedAt = time.Unix(createdAt.(int64), 0).UTC()

	if s := tagsRaw.(string); s != "" {
		if err := json.Unmarshal([]byte(s), &e.Tags); err != nil {
			return e, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if s := filePathsRaw.(string); s != "" {
		if err := json.Unmarshal([]byte(s), &e.FilePaths); err != nil {
			return e, fmt.Errorf("failed to unmarshal file paths: %w", err)
		}
	}

	return e, nil
}
