package httpstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yukikurage/consultant-worklog/internal/constants"
	"github.com/yukikurage/consultant-worklog/internal/dto"
	"github.com/yukikurage/consultant-worklog/internal/store"
)

// serverFields are assigned by the API and never sent on create.
var serverFields = []string{"id", "version", "updated_at"}

// Collection is a store.Collection backed by /api/v1/<name>.
type Collection[T any, PT interface {
	*T
	store.Document
}] struct {
	client *Client
	name   string
}

// NewCollection returns the named collection of the API behind client.
func NewCollection[T any, PT interface {
	*T
	store.Document
}](client *Client, name string) *Collection[T, PT] {
	return &Collection[T, PT]{client: client, name: name}
}

func (c *Collection[T, PT]) path(id string) string {
	p := "/api/v1/" + url.PathEscape(c.name)
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (c *Collection[T, PT]) Create(ctx context.Context, doc *T) (string, error) {
	d := PT(doc)

	fields, err := toFields(doc)
	if err != nil {
		return "", store.NewError(store.KindInvalidArgument, "create", c.name, "",
			fmt.Errorf("%w: %v", store.ErrInvalidArgument, err))
	}
	for _, k := range serverFields {
		delete(fields, k)
	}
	if d.GetCreatedAt().IsZero() {
		delete(fields, "created_at")
	}

	var created dto.CreatedDocument
	if err := c.client.do(ctx, "create", c.name, http.MethodPost, c.path(""), nil, fields, &created); err != nil {
		return "", err
	}
	d.SetID(created.ID)
	d.SetVersion(created.Version)
	d.SetCreatedAt(created.CreatedAt)
	return created.ID, nil
}

func (c *Collection[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	var doc T
	err := c.client.do(ctx, "get", c.name, http.MethodGet, c.path(id), nil, nil, &doc)
	if store.KindOf(err) == store.KindNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, withID(err, id)
	}
	return &doc, nil
}

func (c *Collection[T, PT]) List(ctx context.Context, filter *store.Filter) ([]T, error) {
	p := c.path("")
	if filter != nil {
		q := url.Values{}
		q.Set("field", filter.Field)
		q.Set("value", fmt.Sprint(filter.Value))
		p += "?" + q.Encode()
	}

	var list dto.DocumentList[T]
	if err := c.client.do(ctx, "list", c.name, http.MethodGet, p, nil, nil, &list); err != nil {
		return nil, err
	}
	if list.Documents == nil {
		list.Documents = []T{}
	}
	return list.Documents, nil
}

func (c *Collection[T, PT]) Update(ctx context.Context, id string, fields store.Fields, opts ...store.UpdateOption) (int64, error) {
	o := store.ApplyUpdateOptions(opts...)

	header := http.Header{}
	if o.IfVersion != 0 {
		header.Set(constants.IfMatchHeader, strconv.FormatInt(o.IfVersion, 10))
	}

	var resp dto.VersionResponse
	if err := c.client.do(ctx, "update", c.name, http.MethodPatch, c.path(id), header, fields, &resp); err != nil {
		return 0, withID(err, id)
	}
	return resp.Version, nil
}

func (c *Collection[T, PT]) Delete(ctx context.Context, id string) error {
	if err := c.client.do(ctx, "delete", c.name, http.MethodDelete, c.path(id), nil, nil, nil); err != nil {
		return withID(err, id)
	}
	return nil
}

func toFields(doc any) (store.Fields, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	fields := store.Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func withID(err error, id string) error {
	var se *store.Error
	if errors.As(err, &se) && se.ID == "" {
		se.ID = id
	}
	return err
}
