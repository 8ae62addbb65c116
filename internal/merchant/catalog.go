package merchant

import (
	"github.com/angelmondragon/ghostcart-backend/pkg/enums"
)

// Product is one catalog entry. Prices are integer cents.
type Product struct {
	ID                   string            `json:"product_id"`
	Name                 string            `json:"name"`
	Description          string            `json:"description"`
	Category             string            `json:"category"`
	PriceCents           int64             `json:"price_cents"`
	StockStatus          enums.StockStatus `json:"stock_status"`
	DeliveryEstimateDays int               `json:"delivery_estimate_days"`
	ImageURL             string            `json:"image_url"`
}

// defaultCatalog is the demo inventory: 15 products across 4 categories.
var defaultCatalog = []Product{
	{
		ID:                   "prod_airpods_001",
		Name:                 "Apple AirPods Pro",
		Description:          "Active noise cancellation, wireless charging case",
		Category:             "Electronics",
		PriceCents:           24900,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 1,
		ImageURL:             "https://demo.ghostcart.com/images/airpods-pro.jpg",
	},
	{
		ID:                   "prod_headphones_001",
		Name:                 "Sony WH-1000XM5 Headphones",
		Description:          "Industry-leading noise canceling headphones",
		Category:             "Electronics",
		PriceCents:           39900,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 2,
		ImageURL:             "https://demo.ghostcart.com/images/sony-headphones.jpg",
	},
	{
		ID:                   "prod_tablet_001",
		Name:                 "Samsung Galaxy Tab S9",
		Description:          "11-inch Android tablet with S Pen",
		Category:             "Electronics",
		PriceCents:           79900,
		StockStatus:          enums.StockStatusOutOfStock,
		DeliveryEstimateDays: 7,
		ImageURL:             "https://demo.ghostcart.com/images/samsung-tablet.jpg",
	},
	{
		ID:                   "prod_watch_001",
		Name:                 "Fitbit Charge 6",
		Description:          "Fitness tracker with heart rate monitor",
		Category:             "Electronics",
		PriceCents:           15999,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 1,
		ImageURL:             "https://demo.ghostcart.com/images/fitbit.jpg",
	},
	{
		ID:                   "prod_coffee_001",
		Name:                 "Philips HD7462 Coffee Maker",
		Description:          "12-cup programmable coffee maker with timer",
		Category:             "Kitchen",
		PriceCents:           6900,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 2,
		ImageURL:             "https://demo.ghostcart.com/images/coffee-maker.jpg",
	},
	{
		ID:                   "prod_blender_001",
		Name:                 "Ninja Professional Blender",
		Description:          "1000-watt blender with 72oz pitcher",
		Category:             "Kitchen",
		PriceCents:           8999,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 1,
		ImageURL:             "https://demo.ghostcart.com/images/blender.jpg",
	},
	{
		ID:                   "prod_mixer_001",
		Name:                 "KitchenAid Stand Mixer",
		Description:          "5-quart tilt-head stand mixer",
		Category:             "Kitchen",
		PriceCents:           37999,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 3,
		ImageURL:             "https://demo.ghostcart.com/images/mixer.jpg",
	},
	{
		ID:                   "prod_airfryer_001",
		Name:                 "Cosori Air Fryer",
		Description:          "5.8-quart air fryer with 11 presets",
		Category:             "Kitchen",
		PriceCents:           11999,
		StockStatus:          enums.StockStatusOutOfStock,
		DeliveryEstimateDays: 5,
		ImageURL:             "https://demo.ghostcart.com/images/airfryer.jpg",
	},
	{
		ID:                   "prod_sneakers_001",
		Name:                 "Nike Air Max 270",
		Description:          "Men's running shoes, size 10",
		Category:             "Fashion",
		PriceCents:           14999,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 2,
		ImageURL:             "https://demo.ghostcart.com/images/nike-shoes.jpg",
	},
	{
		ID:                   "prod_jacket_001",
		Name:                 "The North Face Fleece Jacket",
		Description:          "Men's full-zip fleece jacket, size L",
		Category:             "Fashion",
		PriceCents:           9999,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 1,
		ImageURL:             "https://demo.ghostcart.com/images/jacket.jpg",
	},
	{
		ID:                   "prod_backpack_001",
		Name:                 "Herschel Supply Co. Backpack",
		Description:          "Classic backpack with laptop sleeve",
		Category:             "Fashion",
		PriceCents:           7999,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 1,
		ImageURL:             "https://demo.ghostcart.com/images/backpack.jpg",
	},
	{
		ID:                   "prod_sunglasses_001",
		Name:                 "Ray-Ban Aviator Sunglasses",
		Description:          "Classic metal aviator sunglasses",
		Category:             "Fashion",
		PriceCents:           15300,
		StockStatus:          enums.StockStatusOutOfStock,
		DeliveryEstimateDays: 10,
		ImageURL:             "https://demo.ghostcart.com/images/rayban.jpg",
	},
	{
		ID:                   "prod_vacuum_001",
		Name:                 "Dyson V11 Cordless Vacuum",
		Description:          "Powerful cordless vacuum with LCD screen",
		Category:             "Home",
		PriceCents:           59999,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 2,
		ImageURL:             "https://demo.ghostcart.com/images/dyson.jpg",
	},
	{
		ID:                   "prod_sheets_001",
		Name:                 "Egyptian Cotton Sheet Set",
		Description:          "Queen size, 800 thread count, white",
		Category:             "Home",
		PriceCents:           12999,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 3,
		ImageURL:             "https://demo.ghostcart.com/images/sheets.jpg",
	},
	{
		ID:                   "prod_lamp_001",
		Name:                 "Modern LED Desk Lamp",
		Description:          "Adjustable brightness and color temperature",
		Category:             "Home",
		PriceCents:           4599,
		StockStatus:          enums.StockStatusInStock,
		DeliveryEstimateDays: 1,
		ImageURL:             "https://demo.ghostcart.com/images/lamp.jpg",
	},
}
