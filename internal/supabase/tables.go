package supabase

import (
	"context"
	"encoding/json"
	"net/http"

	"expensedocs/internal/core"
)

func (c *Client) ListCategories(ctx context.Context) ([]core.ExpenseCategory, error) {
	var out []core.ExpenseCategory
	err := c.do(ctx, request{
		op:     "list categories",
		method: http.MethodGet,
		path:   tablePath(core.TableCategories),
		query:  newQuery().Select("*").Order("display_order", true).values,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, in core.NewCategory) (core.ExpenseCategory, error) {
	var out core.ExpenseCategory
	err := c.do(ctx, request{
		op:      "create category",
		method:  http.MethodPost,
		path:    tablePath(core.TableCategories),
		query:   newQuery().Select("*").values,
		header:  representation(),
		payload: in.Row(),
	}, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, id string, patch core.CategoryPatch) (core.ExpenseCategory, error) {
	var out core.ExpenseCategory
	err := c.update(ctx, "update category", core.TableCategories, id, patch, &out)
	return out, err
}

func (c *Client) DeleteCategory(ctx context.Context, id string) (bool, error) {
	return c.delete(ctx, "delete category", core.TableCategories, id)
}

func (c *Client) ListDocuments(ctx context.Context, categoryID string) ([]core.ExpenseDocument, error) {
	q := newQuery().Select("*").Order("date", false).Order("created_at", false)
	if categoryID != "" {
		q.Eq("category_id", categoryID)
	}

	var out []core.ExpenseDocument
	err := c.do(ctx, request{
		op:     "list documents",
		method: http.MethodGet,
		path:   tablePath(core.TableDocuments),
		query:  q.values,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateDocument(ctx context.Context, in core.NewDocument) (core.ExpenseDocument, error) {
	var out core.ExpenseDocument
	err := c.do(ctx, request{
		op:      "create document",
		method:  http.MethodPost,
		path:    tablePath(core.TableDocuments),
		query:   newQuery().Select("*").values,
		header:  representation(),
		payload: in.Row(c.now()),
	}, &out)
	return out, err
}

func (c *Client) UpdateDocument(ctx context.Context, id string, patch core.DocumentPatch) (core.ExpenseDocument, error) {
	var out core.ExpenseDocument
	var cleared []string
	if patch.Amount == nil && patch.ClearAmount {
		cleared = append(cleared, "amount")
	}
	err := c.update(ctx, "update document", core.TableDocuments, id, patch, &out, cleared...)
	return out, err
}

func (c *Client) DeleteDocument(ctx context.Context, id string) (bool, error) {
	return c.delete(ctx, "delete document", core.TableDocuments, id)
}

// GetCompanyProfile returns nil, nil when the table is empty.
func (c *Client) GetCompanyProfile(ctx context.Context) (*core.CompanyProfile, error) {
	var rows []core.CompanyProfile
	err := c.do(ctx, request{
		op:     "get company profile",
		method: http.MethodGet,
		path:   tablePath(core.TableProfile),
		query:  newQuery().Select("*").Limit(1).values,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *Client) UpdateCompanyProfile(ctx context.Context, id string, patch core.ProfilePatch) (core.CompanyProfile, error) {
	var out core.CompanyProfile
	err := c.update(ctx, "update company profile", core.TableProfile, id, patch, &out)
	return out, err
}

// update sends patch plus updated_at; columns in cleared are set to null.
func (c *Client) update(ctx context.Context, op, table, id string, patch any, out any, cleared ...string) error {
	payload, err := stamped(patch, c.now())
	if err != nil {
		return core.NewBackendError(op, 0, err.Error())
	}
	for _, column := range cleared {
		payload[column] = json.RawMessage("null")
	}
	return c.do(ctx, request{
		op:      op,
		method:  http.MethodPatch,
		path:    tablePath(table),
		query:   newQuery().Eq("id", id).Select("*").values,
		header:  representation(),
		payload: payload,
	}, out)
}

func (c *Client) delete(ctx context.Context, op, table, id string) (bool, error) {
	h := http.Header{}
	h.Set("Prefer", "return=minimal")
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodDelete,
		path:   tablePath(table),
		query:  newQuery().Eq("id", id).values,
		header: h,
	}, nil)
	if err != nil {
		return false, err
	}
	return true, nil
}
