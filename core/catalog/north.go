package catalog

// RegisterNorth adds markets of the northern states
func RegisterNorth(b *Builder) {
	// Uttar Pradesh
	b.Register("UP001", "Kanpur APMC", "Uttar Pradesh", "Kanpur", 26.45, 80.33)
	b.Register("UP002", "Lucknow APMC", "Uttar Pradesh", "Lucknow", 26.85, 80.95)
	b.Register("UP003", "Agra Mandi", "Uttar Pradesh", "Agra", 27.18, 78.01)
	b.Register("UP004", "Varanasi APMC", "Uttar Pradesh", "Varanasi", 25.32, 82.97)

	// Punjab
	b.Register("PB001", "Khanna Mandi", "Punjab", "Ludhiana", 30.70, 76.22)
	b.Register("PB002", "Ludhiana Grain Market", "Punjab", "Ludhiana", 30.90, 75.85)
	b.Register("PB003", "Amritsar APMC", "Punjab", "Amritsar", 31.63, 74.87)

	// Haryana
	b.Register("HR001", "Karnal Mandi", "Haryana", "Karnal", 29.69, 76.99)
	b.Register("HR002", "Sirsa APMC", "Haryana", "Sirsa", 29.53, 75.03)
	b.Register("HR003", "Hisar Grain Market", "Haryana", "Hisar", 29.15, 75.72)
}
