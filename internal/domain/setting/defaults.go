package setting

// DefaultCatalog returns the built-in manageable settings, used when the
// operator does not supply a catalog in configuration.
func DefaultCatalog() Catalog {
	defs := []Definition{
		{Key: "wgSitename", Name: "Site name", Kind: Text, Help: "The name of your wiki", Section: "general"},
		{Key: "wgMetaNamespace", Name: "Meta namespace", Kind: Text, Help: "Namespace for project pages", Section: "general"},
		{Key: "wgLanguageCode", Name: "Language", Kind: Language, Help: "Default language for the wiki", Section: "general"},
		{Key: "wgDefaultSkin", Name: "Default skin", Kind: Select,
			Options: []string{"vector", "monobook", "timeless", "minerva"},
			Help:    "Default skin for users", Section: "appearance"},
		{Key: "wgLogo", Name: "Logo URL", Kind: Text, Help: "URL to the wiki logo", Section: "appearance"},
		{Key: "wgEnableUploads", Name: "Enable file uploads", Kind: Check, Help: "Allow users to upload files", Section: "uploads"},
		{Key: "wgUseImageMagick", Name: "Use ImageMagick", Kind: Check, Help: "Use ImageMagick for image processing", Section: "uploads"},
		{Key: "wgFileExtensions", Name: "Allowed file extensions", Kind: Array,
			Help: "Comma-separated list of allowed file extensions", Section: "uploads"},
		{Key: "wgMaxUploadSize", Name: "Max upload size", Kind: Text, Help: "Maximum file upload size in bytes", Section: "uploads"},
		{Key: "wgRightsText", Name: "Copyright text", Kind: Text, Help: "Copyright/license text", Section: "rights"},
		{Key: "wgRightsUrl", Name: "Copyright URL", Kind: Text, Help: "URL to copyright/license", Section: "rights"},
		{Key: "wgRightsIcon", Name: "Copyright icon URL", Kind: Text, Help: "URL to copyright/license icon", Section: "rights"},
		{Key: "wgEmergencyContact", Name: "Emergency contact email", Kind: Text, Help: "Email for emergency contact", Section: "email"},
		{Key: "wgPasswordSender", Name: "Password sender email", Kind: Text, Help: "Email address for password emails", Section: "email"},
	}

	catalog := make(Catalog, len(defs))
	for _, d := range defs {
		d.KindStr = d.Kind.String()
		catalog[d.Key] = d
	}
	return catalog
}
