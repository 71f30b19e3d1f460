package main

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type catalogSeeder interface {
	CreateCatalog(ctx context.Context, catalogID string) error
	AddProduct(ctx context.Context, catalogID string, product *domain.Product) error
}

// seedCatalog creates the catalog and adds the demo products. Products that
// already exist are left untouched, so restarts are safe.
func seedCatalog(ctx context.Context, catalog catalogSeeder, catalogID string, logger *zap.Logger) error {
	if err := catalog.CreateCatalog(ctx, catalogID); err != nil {
		return err
	}

	added := 0
	for i := range seedProducts {
		product := seedProducts[i]
		err := catalog.AddProduct(ctx, catalogID, &product)
		if status.Code(err) == codes.AlreadyExists {
			continue
		}
		if err != nil {
			return err
		}
		added++
	}
	logger.Info("catalog seeded", zap.String("catalog_id", catalogID), zap.Int("added", added))
	return nil
}

var seedProducts = []domain.Product{
	{
		ID:            "shirt-001",
		Name:          "Classic Blue Shirt",
		Description:   "A comfortable cotton shirt in classic blue",
		Picture:       "https://pngimg.com/uploads/tshirt/tshirt_PNG5437.png",
		PriceCents:    2999,
		Categories:    []string{"shirts", "men", "casual"},
		StockQuantity: 50,
	},
	{
		ID:            "shirt-002",
		Name:          "White Dress Shirt",
		Description:   "Elegant white dress shirt for formal occasions",
		Picture:       "https://pngimg.com/uploads/tshirt/tshirt_PNG5447.png",
		PriceCents:    3999,
		Categories:    []string{"shirts", "men", "formal"},
		StockQuantity: 30,
	},
	{
		ID:            "shirt-003",
		Name:          "Black Polo Shirt",
		Description:   "Sporty black polo shirt",
		Picture:       "https://pngimg.com/uploads/tshirt/tshirt_PNG5427.png",
		PriceCents:    3499,
		Categories:    []string{"shirts", "men", "sports"},
		StockQuantity: 25,
	},
	{
		ID:            "shirt-004",
		Name:          "Red Flannel Shirt",
		Description:   "Cozy red flannel for casual wear",
		Picture:       "https://pngimg.com/uploads/tshirt/tshirt_PNG5437.png",
		PriceCents:    4599,
		Categories:    []string{"shirts", "men", "casual"},
		StockQuantity: 20,
	},
	{
		ID:            "shirt-005",
		Name:          "Striped Button-Down",
		Description:   "Navy striped button-down shirt",
		Picture:       "https://pngimg.com/uploads/tshirt/tshirt_PNG5454.png",
		PriceCents:    3899,
		Categories:    []string{"shirts", "men", "business"},
		StockQuantity: 15,
	},
	{
		ID:            "pants-001",
		Name:          "Denim Jeans",
		Description:   "Classic blue denim jeans",
		Picture:       "https://pngimg.com/uploads/jeans/jeans_PNG5763.png",
		PriceCents:    4999,
		Categories:    []string{"pants", "men", "casual"},
		StockQuantity: 40,
	},
	{
		ID:            "pants-002",
		Name:          "Khaki Chinos",
		Description:   "Versatile khaki chinos",
		Picture:       "https://pngimg.com/uploads/jeans/jeans_PNG5763.png",
		PriceCents:    4499,
		Categories:    []string{"pants", "men", "casual"},
		StockQuantity: 35,
	},
	{
		ID:            "pants-003",
		Name:          "Black Dress Pants",
		Description:   "Formal black dress pants",
		Picture:       "https://pngimg.com/uploads/jeans/jeans_PNG5763.png",
		PriceCents:    5999,
		Categories:    []string{"pants", "men", "formal"},
		StockQuantity: 25,
	},
	{
		ID:            "pants-004",
		Name:          "Gray Joggers",
		Description:   "Comfortable gray joggers",
		Picture:       "https://pngimg.com/uploads/jeans/jeans_PNG5763.png",
		PriceCents:    4299,
		Categories:    []string{"pants", "men", "sports"},
		StockQuantity: 30,
	},
	{
		ID:            "shoes-001",
		Name:          "White Sneakers",
		Description:   "Classic white leather sneakers",
		Picture:       "https://pngimg.com/uploads/men_shoes/men_shoes_PNG7476.png",
		PriceCents:    7999,
		Categories:    []string{"shoes", "casual", "sports"},
		StockQuantity: 45,
	},
	{
		ID:            "shoes-002",
		Name:          "Black Running Shoes",
		Description:   "High-performance running shoes",
		Picture:       "https://pngimg.com/uploads/men_shoes/men_shoes_PNG7476.png",
		PriceCents:    8999,
		Categories:    []string{"shoes", "sports", "athletic"},
		StockQuantity: 5,
	},
	{
		ID:            "shoes-003",
		Name:          "Brown Leather Boots",
		Description:   "Rugged brown leather boots",
		Picture:       "https://pngimg.com/uploads/men_shoes/men_shoes_PNG7476.png",
		PriceCents:    12000,
		Categories:    []string{"shoes", "boots", "casual"},
		StockQuantity: 18,
	},
	{
		ID:            "shoes-004",
		Name:          "Blue Canvas Shoes",
		Description:   "Lightweight blue canvas shoes",
		Picture:       "https://pngimg.com/uploads/men_shoes/men_shoes_PNG7476.png",
		PriceCents:    5500,
		Categories:    []string{"shoes", "casual", "summer"},
		StockQuantity: 28,
	},
	{
		ID:            "jackets-001",
		Name:          "Black Leather Jacket",
		Description:   "Classic black leather jacket",
		Picture:       "https://pngimg.com/uploads/jacket/jacket_PNG8047.png",
		PriceCents:    14999,
		Categories:    []string{"jackets", "outerwear", "casual"},
		StockQuantity: 12,
	},
	{
		ID:            "jackets-002",
		Name:          "Navy Windbreaker",
		Description:   "Lightweight navy windbreaker",
		Picture:       "https://pngimg.com/uploads/jacket/jacket_PNG8036.png",
		PriceCents:    6999,
		Categories:    []string{"jackets", "outerwear", "sports"},
		StockQuantity: 22,
	},
	{
		ID:            "jackets-003",
		Name:          "Gray Hoodie",
		Description:   "Cozy gray hooded sweatshirt",
		Picture:       "https://pngimg.com/uploads/jacket/jacket_PNG8039.png",
		PriceCents:    5499,
		Categories:    []string{"jackets", "hoodies", "casual"},
		StockQuantity: 35,
	},
	{
		ID:            "jackets-004",
		Name:          "Denim Jacket",
		Description:   "Classic blue denim jacket",
		Picture:       "https://pngimg.com/uploads/jacket/jacket_PNG8049.png",
		PriceCents:    7999,
		Categories:    []string{"jackets", "denim", "casual"},
		StockQuantity: 18,
	},
	{
		ID:            "accessories-001",
		Name:          "Black Leather Belt",
		Description:   "Premium black leather belt",
		Picture:       "https://www.hnwilliams.com/wp-content/uploads/2024/01/BLACK_305.jpg",
		PriceCents:    3500,
		Categories:    []string{"accessories", "belts", "leather"},
		StockQuantity: 40,
	},
	{
		ID:            "accessories-002",
		Name:          "Blue Baseball Cap",
		Description:   "Casual blue baseball cap",
		Picture:       "https://pngimg.com/uploads/cap/cap_PNG5674.png",
		PriceCents:    2500,
		Categories:    []string{"accessories", "hats", "casual"},
		StockQuantity: 50,
	},
	{
		ID:            "accessories-003",
		Name:          "Sunglasses",
		Description:   "Stylish black sunglasses",
		Picture:       "https://pngimg.com/uploads/sunglasses/sunglasses_PNG142.png",
		PriceCents:    4599,
		Categories:    []string{"accessories", "sunglasses", "summer"},
		StockQuantity: 8,
	},
	{
		ID:            "accessories-004",
		Name:          "Wool Scarf",
		Description:   "Warm gray wool scarf",
		Picture:       "https://pngimg.com/uploads/scarf/scarf_PNG27.png",
		PriceCents:    3200,
		Categories:    []string{"accessories", "scarves", "winter"},
		StockQuantity: 20,
	},
	{
		ID:            "accessories-005",
		Name:          "Leather Watch",
		Description:   "Brown leather strap watch",
		Picture:       "https://www.nixon.com/cdn/shop/files/A105-2001-view1.png?v=1718724157",
		PriceCents:    9500,
		Categories:    []string{"accessories", "watches", "formal"},
		StockQuantity: 15,
	},
	{
		ID:            "bags-001",
		Name:          "Black Backpack",
		Description:   "Spacious black backpack",
		Picture:       "https://us.oneill.com/cdn/shop/products/SU3195000_BLK_8.jpg?v=1675818358",
		PriceCents:    6500,
		Categories:    []string{"bags", "backpacks", "casual"},
		StockQuantity: 30,
	},
	{
		ID:            "bags-002",
		Name:          "Brown Messenger Bag",
		Description:   "Vintage brown messenger bag",
		Picture:       "https://www.rustictown.com/cdn/shop/products/Rustictown_LeatherMessengerBagforMen_LeatherSatchelBag_LeatherBriefcase_1074dd7e-52c0-4c38-8f9b-50c833de40e4.webp?v=1681986221&width=2000",
		PriceCents:    8500,
		Categories:    []string{"bags", "messenger", "business"},
		StockQuantity: 12,
	},
	{
		ID:            "bags-003",
		Name:          "Gym Duffel Bag",
		Description:   "Large gym duffel bag",
		Picture:       "https://totebagfactory.com/cdn/shop/products/quality-black-gym-bag.png?v=1600469072&width=1214",
		PriceCents:    4899,
		Categories:    []string{"bags", "sports", "gym"},
		StockQuantity: 25,
	},
}
