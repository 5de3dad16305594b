package content

// FirstImage finds the first usable image in a block's subtree. The search
// prefers direct image fields on recognized kinds before descending, and
// visits columns, rich text, body, and components in that order at each node.
func FirstImage(b *Blok) string {
	if b == nil {
		return ""
	}
	if len(b.Body) > 0 {
		return firstImageIn(b.Body, 0)
	}
	return firstImageIn([]Blok{*b}, 0)
}

// FirstImageIn searches a block list in document order.
func FirstImageIn(bloks []Blok) string {
	return firstImageIn(bloks, 0)
}

func firstImageIn(bloks []Blok, depth int) string {
	if depth > maxDepth {
		return ""
	}

	for i := range bloks {
		b := &bloks[i]

		// Direct image on recognized kinds wins over any descent.
		switch b.Component {
		case KindImage, KindHero, KindCard, KindFeature:
			if img := b.ImageFilename(); img != "" {
				return img
			}
		}

		// Grid columns: direct image cells first, then nested bodies.
		if b.Component == KindGrid && len(b.Columns) > 0 {
			for j := range b.Columns {
				col := &b.Columns[j]
				if col.Component == KindImage {
					if img := col.ImageFilename(); img != "" {
						return img
					}
				}
				if len(col.Body) > 0 {
					if img := firstImageIn(col.Body, depth+1); img != "" {
						return img
					}
				}
			}
		}

		// Rich text embedded in text components.
		if b.Component == KindText && b.Text != nil {
			if img := imageFromRichText(b.Text, depth+1); img != "" {
				return img
			}
		}

		if len(b.Body) > 0 {
			if img := firstImageIn(b.Body, depth+1); img != "" {
				return img
			}
		}

		if len(b.Components) > 0 {
			if img := firstImageIn(b.Components, depth+1); img != "" {
				return img
			}
		}
	}

	return ""
}

// ImageFromRichText returns the source of the first image node in a rich-text
// tree, depth-first pre-order, or "" if none exists.
func ImageFromRichText(rt *RichText) string {
	return imageFromRichText(rt, 0)
}

func imageFromRichText(rt *RichText, depth int) string {
	if rt == nil || depth > maxDepth {
		return ""
	}
	for i := range rt.Content {
		node := &rt.Content[i]
		if node.Type == "image" && node.Attrs.Src != "" {
			return node.Attrs.Src
		}
		if len(node.Content) > 0 {
			if img := imageFromRichText(node, depth+1); img != "" {
				return img
			}
		}
	}
	return ""
}
