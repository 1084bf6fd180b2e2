package domain

// Product mirrors the catalog listing payload. The backend aliases its
// columns, hence product_* keys instead of bare ones.
type Product struct {
	ID            int64   `json:"product_id"`
	Name          string  `json:"product_name"`
	Description   string  `json:"product_description,omitempty"`
	Price         float64 `json:"price"`
	Stock         int     `json:"stock"`
	ImageURL      string  `json:"image_url,omitempty"`
	SubcategoryID int64   `json:"sub_category_id,omitempty"`
}

// ProductDetail is the product page payload: the product itself plus
// a handful of related items from the same subcategory.
type ProductDetail struct {
	Product Product   `json:"product"`
	Related []Product `json:"related_products"`
}

type Category struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	ImageURL      string        `json:"image_url,omitempty"`
	Subcategories []Subcategory `json:"subcategories,omitempty"`
}

type Subcategory struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url,omitempty"`
}

// User is the profile payload returned by the auth endpoints.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
