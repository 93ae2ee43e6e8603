package source

import (
	"context"
	"fmt"

	"github.com/qshape/qshape/internal/record"
	"github.com/qshape/qshape/internal/soql"
)

// table is a store that can count and slice the records of one object.
type table interface {
	count(ctx context.Context, object string) (int, error)
	// slice returns up to limit records from offset; limit < 0 means all.
	slice(ctx context.Context, object string, offset, limit int) ([]*record.Record, error)
}

// paged implements Service over a table. The query's FROM object selects the
// records and its LIMIT caps the result; everything else in the query text is
// ignored, because fixtures already hold the projected shape.
type paged struct {
	table     table
	pageSize  int
	batchSize int
}

func (p *paged) target(ctx context.Context, q string) (string, int, error) {
	object := soql.SourceObject(q)
	if object == "" {
		return "", 0, &Error{Err: ErrNoObject, Message: "Unable to determine the object in the FROM clause."}
	}
	total, err := p.table.count(ctx, object)
	if err != nil {
		return "", 0, err
	}
	if limit, ok := soql.Limit(q); ok && limit < total {
		total = limit
	}
	return object, total, nil
}

func (p *paged) Query(ctx context.Context, q string) ([]*record.Record, error) {
	page, err := p.QueryPage(ctx, q, 0, p.pageSize)
	if err != nil {
		return nil, err
	}
	return page.Records, nil
}

func (p *paged) QueryAll(ctx context.Context, q string) ([]*record.Record, error) {
	object, total, err := p.target(ctx, q)
	if err != nil {
		return nil, err
	}
	return p.table.slice(ctx, object, 0, total)
}

func (p *paged) QueryPage(ctx context.Context, q string, offset, limit int) (*Page, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}
	object, total, err := p.target(ctx, q)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || offset+limit > total {
		limit = total - offset
	}
	var records []*record.Record
	if limit > 0 {
		records, err = p.table.slice(ctx, object, offset, limit)
		if err != nil {
			return nil, err
		}
	}
	if records == nil {
		records = []*record.Record{}
	}
	return &Page{
		Records:    records,
		TotalCount: total,
		HasMore:    offset+len(records) < total,
	}, nil
}

func (p *paged) ExportBatch(ctx context.Context, q string, batch int) (*Page, error) {
	if batch < 0 {
		return nil, fmt.Errorf("%w: batch %d", ErrOutOfSequence, batch)
	}
	return p.QueryPage(ctx, q, batch*p.batchSize, p.batchSize)
}
