package service

import (
	"strings"

	"github.com/GTDGit/dropaz_api/internal/models"
)

// brandIconGroup holds icons served from the FontAwesome brands set.
const brandIconGroup = "Brendlər"

type iconGroup struct {
	Name  string
	Icons []string
}

var iconDatabase = []iconGroup{
	{"Səhiyyə", []string{
		"heartbeat", "user-md", "pills", "syringe", "first-aid", "stethoscope",
		"thermometer", "tooth", "eye", "hospital", "ambulance", "band-aid",
		"dna", "x-ray", "brain", "lungs", "heart", "bone", "wheelchair",
		"medical-kit", "virus", "shield-virus",
	}},
	{"Elektronika", []string{
		"laptop", "mobile-alt", "desktop", "tablet", "keyboard", "mouse",
		"headphones", "tv", "camera", "video", "microphone", "usb",
		"wifi", "bluetooth", "hard-drive", "memory", "microchip", "plug",
		"battery-full", "charging-station", "satellite", "router", "server",
	}},
	{"Geyim & Moda", []string{
		"tshirt", "shoe-prints", "hat-cowboy", "glasses", "ring", "gem",
		"crown", "mask", "umbrella", "backpack", "handbag", "shopping-bag",
		"dress", "vest", "mitten", "socks", "hat-wizard", "user-tie",
		"bow-tie", "female", "male",
	}},
	{"Nəqliyyat", []string{
		"car", "truck", "motorcycle", "bicycle", "plane", "train", "bus",
		"taxi", "ship", "rocket", "helicopter", "subway", "car-side",
		"truck-loading", "shipping-fast", "anchor", "route", "gas-pump",
		"traffic-light", "road", "parking",
	}},
	{"Təhsil", []string{
		"book", "graduation-cap", "pencil-alt", "pen", "bookmark", "newspaper",
		"file-alt", "folder", "archive", "clipboard", "calculator", "ruler",
		"school", "university", "blackboard", "student", "teacher", "library",
		"diploma", "award", "medal", "trophy",
	}},
	{"Əyləncə & İdman", []string{
		"gamepad", "dice", "chess", "puzzle-piece", "magic", "gift",
		"birthday-cake", "balloon", "party-horn", "fireworks", "ticket-alt",
		"running", "dumbbell", "futbol", "basketball-ball", "tennis-ball",
		"volleyball-ball", "table-tennis", "golf-ball", "hockey-puck", "swimming-pool",
	}},
	{"Yemək & İçki", []string{
		"utensils", "coffee", "wine-bottle", "beer", "pizza-slice", "hamburger",
		"ice-cream", "apple-alt", "carrot", "fish", "bread-slice", "cheese",
		"cookie", "birthday-cake", "cocktail", "glass-whiskey", "mug-hot",
		"pepper-hot", "seedling", "lemon", "candy-cane",
	}},
	{"Alətlər & Texnika", []string{
		"hammer", "wrench", "screwdriver", "paint-roller", "brush", "toolbox",
		"hard-hat", "bolt", "cog", "gear", "cut", "magnet",
		"drill", "saw", "level", "measuring-tape", "pliers", "wrench-alt",
		"construction", "crane", "bulldozer",
	}},
	{"Təbiət & Hava", []string{
		"tree", "leaf", "seedling", "flower", "sun", "moon", "cloud",
		"rainbow", "snowflake", "fire", "mountain", "water",
		"wind", "tornado", "lightning", "thermometer-half", "icicles",
		"volcano", "desert", "forest", "park",
	}},
	{"Musiqi & Səs", []string{
		"music", "volume-up", "play", "pause", "stop", "forward", "backward",
		"random", "repeat", "guitar", "drum", "violin",
		"piano", "trumpet", "saxophone", "headphones-alt", "radio",
		"compact-disc", "vinyl", "microphone-alt", "speaker",
	}},
	{"Təhlükəsizlik", []string{
		"shield-alt", "lock", "key", "fingerprint", "user-secret", "mask",
		"eye-slash", "unlock", "safe", "vault", "crown", "badge",
		"id-card", "passport", "certificate", "security", "guard",
		"camera-security", "alarm", "fire-extinguisher",
	}},
	{"Ev & Yaşayış", []string{
		"home", "couch", "bed", "chair", "door-open", "lightbulb", "plug",
		"shower", "toilet", "kitchen-set", "stairs", "window-maximize",
		"lamp", "fan", "air-conditioner", "heater", "refrigerator",
		"washing-machine", "vacuum", "broom", "key-house",
	}},
	{"İş & Biznes", []string{
		"briefcase", "building", "city", "industry", "store", "warehouse",
		"handshake", "chart-bar", "presentation", "calculator", "balance-scale",
		"money-bill", "coins", "credit-card", "receipt", "invoice",
		"contract", "signature", "stamp", "fax", "printer",
	}},
	{"Sosial & Ünsiyyət", []string{
		"users", "user-friends", "user-plus", "comments", "share-alt",
		"thumbs-up", "thumbs-down", "heart", "star", "fire", "trophy",
		"chat", "message", "envelope", "phone", "video-call",
		"handshake-alt", "people-group", "network",
	}},
	{brandIconGroup, []string{
		"apple", "google", "microsoft", "facebook", "twitter", "instagram",
		"youtube", "linkedin", "github", "whatsapp", "telegram", "discord",
		"spotify", "netflix", "amazon", "paypal", "visa", "mastercard",
		"android", "chrome", "firefox", "safari", "edge", "opera",
	}},
}

// IconGroup is one section of the icon picker.
type IconGroup struct {
	Name  string            `json:"name"`
	Icons []models.IconInfo `json:"icons"`
}

// IconCatalog is the icon picker payload.
type IconCatalog struct {
	Groups []IconGroup `json:"groups"`
	Total  int         `json:"total"`
}

// SearchIcons filters the icon dictionary by group name and a substring of the icon name.
// Total counts the icons returned.
func SearchIcons(query, group string) IconCatalog {
	query = strings.ToLower(strings.TrimSpace(query))
	group = strings.TrimSpace(group)

	out := IconCatalog{Groups: []IconGroup{}}
	for _, g := range iconDatabase {
		if group != "" && !strings.EqualFold(g.Name, group) {
			continue
		}
		prefix := "fas fa-"
		if g.Name == brandIconGroup {
			prefix = "fab fa-"
		}
		icons := []models.IconInfo{}
		for _, name := range g.Icons {
			if query != "" && !strings.Contains(name, query) {
				continue
			}
			if info := models.IconInfoOf(prefix + name); info != nil {
				icons = append(icons, *info)
			}
		}
		if len(icons) == 0 {
			continue
		}
		out.Groups = append(out.Groups, IconGroup{Name: g.Name, Icons: icons})
		out.Total += len(icons)
	}
	return out
}
