// Package caption formats chat captions for one or many photos.
package caption

import (
	"fmt"
	"strings"

	photoshare "github.com/Mmoolchandji/photo-garden-guardian-clerk-sub000"
)

// DescriptionLimit is the number of description characters kept in a
// combined caption.
const DescriptionLimit = 50

func price(p photoshare.ShareablePhoto) string {
	return "₹" + photoshare.FormatPrice(*p.Price)
}

// Single is the caption used when one photo is shared as a link.
func Single(p photoshare.ShareablePhoto) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✨ Check out this beautiful saree: *%s*", p.Title)
	if p.HasPrice() {
		fmt.Fprintf(&b, "\n💰 Price: %s", price(p))
	}
	b.WriteString("\n\n📸 View the complete collection at our gallery!")
	return b.String()
}

// Individual is the per-photo caption used when photos are sent one message
// at a time.
func Individual(p photoshare.ShareablePhoto) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✨ *%s*", p.Title)
	if p.HasPrice() {
		fmt.Fprintf(&b, "\n💰 Price: %s", price(p))
	} else {
		b.WriteString("\n💫 Premium Quality Saree")
	}
	if desc := strings.TrimSpace(p.Description); desc != "" {
		fmt.Fprintf(&b, "\n📝 %s", desc)
	}
	return b.String()
}

// Combined is the caption attached to a multi-file share.
func Combined(photos []photoshare.ShareablePhoto) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✨ *Beautiful Saree Collection* (%d photos)\n\n", len(photos))
	for i, p := range photos {
		fmt.Fprintf(&b, "%d. *%s*", i+1, p.Title)
		if p.HasPrice() {
			fmt.Fprintf(&b, "\n   💰 %s", price(p))
		} else {
			b.WriteString("\n   💫 Premium Quality")
		}
		if desc := strings.TrimSpace(p.Description); desc != "" {
			fmt.Fprintf(&b, "\n   📝 %s", truncate(desc, DescriptionLimit))
		}
		b.WriteString("\n\n")
	}
	b.WriteString("📸 *Complete collection with detailed photos attached!*\n")
	b.WriteString("🛒 Contact us for more details or to place your order.")
	return b.String()
}

// MultipleList is a compact listing used when several photos are shared as
// one text message.
func MultipleList(photos []photoshare.ShareablePhoto) string {
	var b strings.Builder
	b.WriteString("✨ Check out these beautiful sarees:\n\n")
	for i, p := range photos {
		fmt.Fprintf(&b, "%d. *%s*", i+1, p.Title)
		if p.HasPrice() {
			fmt.Fprintf(&b, " - %s", price(p))
		} else {
			b.WriteString(" - Premium Quality")
		}
		b.WriteByte('\n')
	}
	b.WriteString("\n📸 View our complete collection at our gallery!")
	return b.String()
}

// BatchPart lists one batch of a batched share. offset is the number of
// photos in earlier batches.
func BatchPart(photos []photoshare.ShareablePhoto, offset, part, totalParts int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✨ Saree Collection - Part %d of %d\n\n", part, totalParts)
	for i, p := range photos {
		fmt.Fprintf(&b, "%d. *%s*", offset+i+1, p.Title)
		if p.HasPrice() {
			fmt.Fprintf(&b, " - %s", price(p))
		}
		b.WriteByte('\n')
	}
	if part < totalParts {
		b.WriteString("\n📸 More varieties in the next parts!")
	} else {
		b.WriteString("\n📸 That's the complete collection!")
	}
	return b.String()
}

// Gallery is the caption that accompanies a gallery link.
func Gallery(count int, link string) string {
	return fmt.Sprintf("✨ Check out my beautiful saree collection!\n\n"+
		"🎨 %d varieties available\n"+
		"💎 Premium quality fabrics\n"+
		"📱 View gallery: %s\n\n"+
		"📞 Contact for prices and availability!", count, link)
}

// WithLink appends a link on its own paragraph.
func WithLink(message, link string) string {
	if link == "" {
		return message
	}
	return message + "\n\n" + link
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
