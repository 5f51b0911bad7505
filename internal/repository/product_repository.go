package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// ProductRepo stores products together with their images and size/colour
// variants.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productSelect = `SELECT p.id, p.name, p.slug, p.sku, p.description, p.price, p.sale_price, p.category_id,
	p.is_featured, p.is_new, p.is_bestseller, p.is_on_sale, p.is_active, p.created_at, p.updated_at,
	COALESCE(c.name, ''), COALESCE(c.slug, ''),
	(SELECT COALESCE(SUM(v.stock), 0) FROM product_variants v WHERE v.product_id = p.id)
	FROM products p LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row interface{ Scan(...any) error }, p *model.Product) error {
	return row.Scan(&p.ID, &p.Name, &p.Slug, &p.SKU, &p.Description, &p.Price, &p.SalePrice, &p.CategoryID,
		&p.IsFeatured, &p.IsNew, &p.IsBestseller, &p.IsOnSale, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		&p.CategoryName, &p.CategorySlug, &p.TotalStock)
}

// Create inserts the product, its images and its variants in one
// transaction. A slug or sku clash rolls everything back with ErrDuplicate.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	if strings.TrimSpace(p.Slug) == "" {
		p.Slug = model.Slugify(p.Name)
	}
	ts := now()
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO products (name, slug, sku, description, price, sale_price, category_id,
			 is_featured, is_new, is_bestseller, is_on_sale, is_active, created_at, updated_at)
			 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			p.Name, p.Slug, p.SKU, p.Description, p.Price, p.SalePrice, p.CategoryID,
			p.IsFeatured, p.IsNew, p.IsBestseller, p.IsOnSale, p.IsActive, ts, ts)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p.ID = uint64(id)
		if err := insertImages(ctx, tx, p.ID, p.Images); err != nil {
			return err
		}
		return insertVariants(ctx, tx, p.ID, p.Variants)
	})
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	p.CreatedAt, p.UpdatedAt = ts, ts
	p.TotalStock = 0
	for _, v := range p.Variants {
		p.TotalStock += v.Stock
	}
	return nil
}

func insertImages(ctx context.Context, tx *sql.Tx, productID uint64, imgs []model.ProductImage) error {
	for i := range imgs {
		imgs[i].ProductID = productID
		res, err := tx.ExecContext(ctx,
			"INSERT INTO product_images (product_id, url, alt, sort_order, is_primary) VALUES (?,?,?,?,?)",
			productID, imgs[i].URL, imgs[i].Alt, imgs[i].SortOrder, imgs[i].IsPrimary)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		imgs[i].ID = uint64(id)
	}
	return nil
}

func insertVariants(ctx context.Context, tx *sql.Tx, productID uint64, vs []model.ProductVariant) error {
	for i := range vs {
		vs[i].ProductID = productID
		res, err := tx.ExecContext(ctx,
			"INSERT INTO product_variants (product_id, size, color, color_hex, stock, sku) VALUES (?,?,?,?,?,?)",
			productID, vs[i].Size, vs[i].Color, vs[i].ColorHex, vs[i].Stock, vs[i].SKU)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		vs[i].ID = uint64(id)
	}
	return nil
}

// GetByID loads a product with images and variants.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	return r.getOne(ctx, " WHERE p.id = ?", id)
}

// GetBySlug loads a product for the storefront. Inactive products are
// reported as not found when activeOnly is set.
func (r *ProductRepo) GetBySlug(ctx context.Context, slug string, activeOnly bool) (*model.Product, error) {
	if activeOnly {
		return r.getOne(ctx, " WHERE p.slug = ? AND p.is_active = ?", slug, true)
	}
	return r.getOne(ctx, " WHERE p.slug = ?", slug)
}

func (r *ProductRepo) getOne(ctx context.Context, where string, args ...any) (*model.Product, error) {
	var p model.Product
	if err := scanProduct(r.db.QueryRowContext(ctx, productSelect+where, args...), &p); err != nil {
		return nil, notFound(err)
	}
	ps := []*model.Product{&p}
	if err := loadProductChildren(ctx, r.db, ps); err != nil {
		return nil, err
	}
	return &p, nil
}

// loadProductChildren fills Images and Variants for every product in ps
// with one query per child table.
func loadProductChildren(ctx context.Context, q execer, ps []*model.Product) error {
	if len(ps) == 0 {
		return nil
	}
	byID := make(map[uint64]*model.Product, len(ps))
	args := make([]any, 0, len(ps))
	for _, p := range ps {
		p.Images = []model.ProductImage{}
		p.Variants = []model.ProductVariant{}
		byID[p.ID] = p
		args = append(args, p.ID)
	}
	in := placeholders(len(ps))

	rows, err := q.QueryContext(ctx,
		"SELECT id, product_id, url, alt, sort_order, is_primary FROM product_images WHERE product_id IN ("+in+") ORDER BY is_primary DESC, sort_order, id", args...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var img model.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.Alt, &img.SortOrder, &img.IsPrimary); err != nil {
			rows.Close()
			return err
		}
		byID[img.ProductID].Images = append(byID[img.ProductID].Images, img)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx,
		"SELECT id, product_id, size, color, color_hex, stock, sku FROM product_variants WHERE product_id IN ("+in+") ORDER BY id", args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var v model.ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.Color, &v.ColorHex, &v.Stock, &v.SKU); err != nil {
			return err
		}
		byID[v.ProductID].Variants = append(byID[v.ProductID].Variants, v)
	}
	return rows.Err()
}

// ProductFilter drives both the storefront listing and the admin table.
// Nil flags are not filtered on.
type ProductFilter struct {
	CategoryID   uint64
	CategorySlug string // matches the category and its direct children
	Search       string
	Featured     *bool
	New          *bool
	Bestseller   *bool
	OnSale       *bool
	ActiveOnly   bool
	Sort         string // newest | price_asc | price_desc | name
	Page         int
	Limit        int
}

// Normalize clamps paging to sane bounds.
func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 12
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

var productSorts = map[string]string{
	"newest":     "p.created_at DESC, p.id DESC",
	"price_asc":  "p.price ASC, p.id",
	"price_desc": "p.price DESC, p.id",
	"name":       "p.name ASC, p.id",
}

// List returns one page of products with their images and variants, plus
// the number of rows matching the filter.
func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, int, error) {
	f.Normalize()
	var (
		where []string
		args  []any
	)
	if f.CategoryID != 0 {
		where = append(where, "p.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.CategorySlug != "" {
		where = append(where, "p.category_id IN (SELECT k.id FROM categories k WHERE k.slug = ? OR k.parent_id = (SELECT s.id FROM categories s WHERE s.slug = ?))")
		args = append(args, f.CategorySlug, f.CategorySlug)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(p.name LIKE ? OR p.sku LIKE ? OR p.description LIKE ?)")
		args = append(args, likeArg(s), likeArg(s), likeArg(s))
	}
	flag := func(col string, v *bool) {
		if v != nil {
			where = append(where, col+" = ?")
			args = append(args, *v)
		}
	}
	flag("p.is_featured", f.Featured)
	flag("p.is_new", f.New)
	flag("p.is_bestseller", f.Bestseller)
	flag("p.is_on_sale", f.OnSale)
	if f.ActiveOnly {
		flag("p.is_active", &f.ActiveOnly)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products p"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := productSorts[f.Sort]
	if !ok {
		order = productSorts["newest"]
	}
	q := productSelect + cond + " ORDER BY " + order + " LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, (f.Page-1)*f.Limit)...)
	if err != nil {
		return nil, 0, err
	}
	out := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	ptrs := make([]*model.Product, len(out))
	for i := range out {
		ptrs[i] = &out[i]
	}
	if err := loadProductChildren(ctx, r.db, ptrs); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type ProductStats struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Featured   int `json:"featured"`
	OnSale     int `json:"onSale"`
	LowStock   int `json:"lowStock"`
	OutOfStock int `json:"outOfStock"`
}

// Stats counts products; a product is low on stock when its summed variant
// stock is positive but at most lowStock, and out of stock at zero.
func (r *ProductRepo) Stats(ctx context.Context, lowStock int) (ProductStats, error) {
	var s ProductStats
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN is_active = ? THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN is_featured = ? THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN is_on_sale = ? THEN 1 ELSE 0 END),0)
		FROM products`, true, true, true).Scan(&s.Total, &s.Active, &s.Featured, &s.OnSale)
	if err != nil {
		return s, err
	}
	err = r.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN t.stock > 0 AND t.stock <= ? THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN t.stock = 0 THEN 1 ELSE 0 END),0)
		FROM (SELECT p.id, COALESCE(SUM(v.stock),0) AS stock
		      FROM products p LEFT JOIN product_variants v ON v.product_id = p.id
		      GROUP BY p.id) t`, lowStock).Scan(&s.LowStock, &s.OutOfStock)
	return s, err
}

// ProductPatch lists the columns an update may touch; nil leaves the
// column alone. Images, when non-nil, replaces the whole gallery.
// VariantStock sets the stock of existing variants by id.
type ProductPatch struct {
	Name         *string
	Slug         *string
	Description  *string
	Price        *decimal.Decimal
	SalePrice    *decimal.Decimal
	ClearSale    bool
	CategoryID   *uint64
	IsFeatured   *bool
	IsNew        *bool
	IsBestseller *bool
	IsOnSale     *bool
	IsActive     *bool
	Images       *[]model.ProductImage
	VariantStock map[uint64]int
}

func (r *ProductRepo) Update(ctx context.Context, id uint64, p ProductPatch) error {
	sets := []string{"updated_at=?"}
	args := []any{now()}
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Slug != nil {
		add("slug", *p.Slug)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Price != nil {
		add("price", *p.Price)
	}
	switch {
	case p.ClearSale:
		add("sale_price", nil)
	case p.SalePrice != nil:
		add("sale_price", *p.SalePrice)
	}
	if p.CategoryID != nil {
		add("category_id", *p.CategoryID)
	}
	if p.IsFeatured != nil {
		add("is_featured", *p.IsFeatured)
	}
	if p.IsNew != nil {
		add("is_new", *p.IsNew)
	}
	if p.IsBestseller != nil {
		add("is_bestseller", *p.IsBestseller)
	}
	if p.IsOnSale != nil {
		add("is_on_sale", *p.IsOnSale)
	}
	if p.IsActive != nil {
		add("is_active", *p.IsActive)
	}
	args = append(args, id)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := affectedOrNotFound(tx.ExecContext(ctx, "UPDATE products SET "+strings.Join(sets, ",")+" WHERE id=?", args...)); err != nil {
			return err
		}
		if p.Images != nil {
			if _, err := tx.ExecContext(ctx, "DELETE FROM product_images WHERE product_id=?", id); err != nil {
				return err
			}
			if err := insertImages(ctx, tx, id, *p.Images); err != nil {
				return err
			}
		}
		for vid, stock := range p.VariantStock {
			if stock < 0 {
				stock = 0
			}
			if err := affectedOrNotFound(tx.ExecContext(ctx,
				"UPDATE product_variants SET stock=? WHERE id=? AND product_id=?", stock, vid, id)); err != nil {
				return err
			}
		}
		return nil
	})
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// Delete removes the product with its images, variants and reviews. Order
// lines keep their snapshot and lose the link.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, q := range []string{
			"UPDATE order_items SET product_id = NULL, variant_id = NULL WHERE product_id = ?",
			"DELETE FROM product_images WHERE product_id = ?",
			"DELETE FROM product_variants WHERE product_id = ?",
			"DELETE FROM reviews WHERE product_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return affectedOrNotFound(tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id))
	})
}
