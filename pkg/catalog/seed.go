package catalog

import "github.com/example/bistro/pkg/models"

func image(id string) string {
	return "https://images.unsplash.com/photo-" + id + "?ixlib=rb-4.0.3&auto=format&fit=crop&w=1000&q=80"
}

// StorefrontDefaults is the menu shown when the storefront finds no saved
// menu at all.
func StorefrontDefaults() []models.MenuItem {
	return []models.MenuItem{
		{ID: "1", Name: "Margherita Pizza", Description: "Classic tomato sauce with mozzarella cheese and fresh basil", Price: 14.99, Category: "pizza", Image: image("1604382355076-af4b0eb60143")},
		{ID: "2", Name: "Pepperoni Pizza", Description: "Spicy pepperoni with melted cheese on crispy crust", Price: 16.99, Category: "pizza", Image: image("1628840042765-356cda07504e")},
		{ID: "3", Name: "Classic Burger", Description: "Juicy beef patty with lettuce, tomato, and special sauce", Price: 12.99, Category: "burger", Image: image("1568901346375-23c9450c58cd")},
		{ID: "4", Name: "Cheese Burger", Description: "Classic burger topped with melted cheddar cheese", Price: 13.99, Category: "burger", Image: image("1586190848861-99aa4a171e90")},
		{ID: "5", Name: "Spaghetti Carbonara", Description: "Pasta with eggs, cheese, pancetta, and black pepper", Price: 15.99, Category: "pasta", Image: image("1621996346565-e3dbc353d2e5")},
		{ID: "6", Name: "Fettuccine Alfredo", Description: "Creamy pasta with parmesan cheese and butter", Price: 14.99, Category: "pasta", Image: image("1551183053-bf91a1d81141")},
		{ID: "7", Name: "Caesar Salad", Description: "Fresh romaine lettuce with caesar dressing and croutons", Price: 9.99, Category: "salad", Image: image("1546793665-c74683f339c1")},
		{ID: "8", Name: "Greek Salad", Description: "Mixed greens with feta cheese, olives, and mediterranean dressing", Price: 10.99, Category: "salad", Image: image("1512621776951-a57141f2eefd")},
		{ID: "9", Name: "Chocolate Cake", Description: "Rich chocolate cake with chocolate ganache frosting", Price: 7.99, Category: "dessert", Image: image("1578985545062-69928b1d9587")},
		{ID: "10", Name: "Tiramisu", Description: "Italian dessert with coffee-soaked ladyfingers and mascarpone", Price: 8.99, Category: "dessert", Image: image("1571877227200-a0d98ea607e9")},
	}
}

// AdminDefaults seeds the admin menu. Saving it also replaces the
// storefront menu.
func AdminDefaults() []models.MenuItem {
	return []models.MenuItem{
		{ID: "1", Name: "Margherita Pizza", Description: "Classic tomato sauce with mozzarella cheese and fresh basil", Price: 14.99, Category: "pizza", Image: image("1604382355076-af4b0eb60143"), Status: models.ItemStatusActive},
		{ID: "2", Name: "Pepperoni Pizza", Description: "Spicy pepperoni with melted cheese on crispy crust", Price: 16.99, Category: "pizza", Image: image("1628840042765-356cda07504e"), Status: models.ItemStatusActive},
		{ID: "3", Name: "Classic Burger", Description: "Juicy beef patty with lettuce, tomato, and special sauce", Price: 12.99, Category: "burger", Image: image("1568901346375-23c9450c58cd"), Status: models.ItemStatusActive},
	}
}

func DefaultCategories() []models.Category {
	return []models.Category{
		{Name: "Pizza", Icon: "fas fa-pizza-slice"},
		{Name: "Burgers", Icon: "fas fa-hamburger"},
		{Name: "Pasta", Icon: "fas fa-utensils"},
		{Name: "Salads", Icon: "fas fa-leaf"},
		{Name: "Desserts", Icon: "fas fa-ice-cream"},
	}
}
