package catalog

// defaultStations is the built-in station list used when no catalog file is configured
var defaultStations = []Station{
	{
		ID:        "1",
		Name:      "Lofi Hip Hop",
		Genre:     "Chill / Study",
		StreamURL: "https://streams.ilovemusic.de/iloveradio17.mp3",
		Frequency: "88.5 FM",
	},
	{
		ID:        "2",
		Name:      "Synthwave Retro",
		Genre:     "Electronic",
		StreamURL: "https://streams.ilovemusic.de/iloveradio2.mp3",
		Frequency: "101.2 FM",
	},
	{
		ID:        "3",
		Name:      "Classic Rock",
		Genre:     "Rock",
		StreamURL: "https://streams.ilovemusic.de/iloveradio10.mp3",
		Frequency: "94.3 FM",
	},
	{
		ID:        "4",
		Name:      "Global News",
		Genre:     "Talk",
		StreamURL: "https://stream.live.vc.bbcmedia.co.uk/bbc_world_service",
		Frequency: "AM 720",
	},
	{
		ID:        "5",
		Name:      "Smooth Jazz",
		Genre:     "Jazz",
		StreamURL: "https://streams.ilovemusic.de/iloveradio14.mp3",
		Frequency: "98.1 FM",
	},
}

var defaultThemes = []Theme{
	{
		ID:   "cyberpunk",
		Name: "Night City",
		Palette: map[string]string{
			RoleBackground:  "#0f172a",
			RoleCase:        "#111827",
			RoleCaseBorder:  "#06b6d4",
			RoleFace:        "#1e293b",
			RoleAccent:      "#ec4899",
			RoleDisplay:     "#000000",
			RoleDisplayText: "#22d3ee",
			RoleSpeaker:     "#1f2937",
		},
		DisplayFont: "Orbitron",
		Texture:     "radial-glow",
	},
	{
		ID:   "retro",
		Name: "1970s Wood",
		Palette: map[string]string{
			RoleBackground:  "#fef3c7",
			RoleCase:        "#5d4037", // dark wood
			RoleCaseBorder:  "#3e2723",
			RoleFace:        "#d7ccc8", // beige
			RoleAccent:      "#ea580c",
			RoleDisplay:     "#263238",
			RoleDisplayText: "#f59e0b",
			RoleSpeaker:     "#3e2723",
		},
		DisplayFont: "Inter",
	},
	{
		ID:   "minimal",
		Name: "Braun White",
		Palette: map[string]string{
			RoleBackground:  "#e5e7eb",
			RoleCase:        "#ffffff",
			RoleCaseBorder:  "#d1d5db",
			RoleFace:        "#f9fafb",
			RoleAccent:      "#111827",
			RoleDisplay:     "#f3f4f6",
			RoleDisplayText: "#111827",
			RoleSpeaker:     "#e5e7eb",
		},
		DisplayFont: "Inter",
	},
	{
		ID:   "ocean",
		Name: "Pacific Blue",
		Palette: map[string]string{
			RoleBackground:  "#eff6ff",
			RoleCase:        "#2563eb",
			RoleCaseBorder:  "#1e40af",
			RoleFace:        "#3b82f6",
			RoleAccent:      "#facc15",
			RoleDisplay:     "#1e3a8a",
			RoleDisplayText: "#dbeafe",
			RoleSpeaker:     "#1d4ed8",
		},
		DisplayFont: "Share Tech Mono",
	},
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := New(defaultStations, defaultThemes)
	if err != nil {
		// The built-in data is validated by tests
		panic(err)
	}
	return c
}
