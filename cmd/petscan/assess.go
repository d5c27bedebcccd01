package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/petfood-scanner/internal/app"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/nutrition"
	"github.com/joseph-ayodele/petfood-scanner/internal/scan"
	"github.com/joseph-ayodele/petfood-scanner/internal/sensitivity"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Check a food's ingredients against pet sensitivities",
	Long: `Assess an ingredient list against one or more pets. Ingredients come from
--ingredients, a label file (--label) or a product barcode (--barcode, looked
up in the catalog and then the product API). Pets come from stored profiles
(--pet) or an ad hoc profile (--species with --sensitivity).`,
	Example: `  petscan assess --ingredients "Chicken, Rice, Garlic" --species dog --sensitivity chicken
  petscan assess --barcode 0123456789012 --pet 3c1f...
  petscan assess --label label.txt --pet 3c1f... --pet 9a02... --json`,
	RunE: runAssess,
}

func init() {
	rootCmd.AddCommand(assessCmd)
	f := assessCmd.Flags()
	f.String("ingredients", "", "comma separated ingredient list")
	f.String("label", "", "label file to parse for ingredients")
	f.String("barcode", "", "product barcode to look up")
	f.StringArray("pet", nil, "stored pet id (repeatable)")
	f.String("species", "", "species for an ad hoc pet: dog or cat")
	f.StringSlice("sensitivity", nil, "sensitivities for an ad hoc pet")
	f.Bool("json", false, "print the assessments as JSON")
}

func runAssess(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()
	ingredientsArg, _ := f.GetString("ingredients")
	label, _ := f.GetString("label")
	barcode, _ := f.GetString("barcode")
	petIDs, _ := f.GetStringArray("pet")
	species, _ := f.GetString("species")
	sens, _ := f.GetStringSlice("sensitivity")
	jsonOut, _ := f.GetBool("json")

	sources := 0
	for _, v := range []string{ingredientsArg, label, barcode} {
		if v != "" {
			sources++
		}
	}
	if sources != 1 {
		return errors.New("give exactly one of --ingredients, --label or --barcode")
	}
	if len(petIDs) == 0 && species == "" {
		return errors.New("give --pet or --species")
	}

	var a *app.App
	if barcode != "" || len(petIDs) > 0 {
		var err error
		if a, err = openApp(ctx); err != nil {
			return err
		}
		defer a.Close()
	}

	var ingredients []string
	switch {
	case ingredientsArg != "":
		ingredients = nutrition.SplitIngredientList(ingredientsArg)
	case label != "":
		res, err := readLabel(ctx, loadConfig().OCR, label)
		if err != nil {
			return err
		}
		ingredients = nutrition.Parse(res.Text).Ingredients
	default:
		p, err := a.Lookup.LookupProduct(ctx, barcode)
		if err != nil {
			return err
		}
		ingredients = p.Nutrition.Ingredients
	}
	if len(ingredients) == 0 {
		return errors.New("no ingredients found")
	}

	var pets []entity.PetProfile
	for _, raw := range petIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("pet %q: not a UUID", raw)
		}
		p, err := a.Pets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		pets = append(pets, *p)
	}
	if species != "" {
		pets = append(pets, entity.PetProfile{Name: "ad hoc " + species, Species: species, Sensitivities: entity.ParseSensitivities(sens)})
	}

	res, err := scan.AssessAll(ctx, nil, ingredients, pets)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(cmd.OutOrStdout(), res)
	}
	printAssessments(cmd.OutOrStdout(), res)
	return nil
}

func printAssessments(w io.Writer, as []sensitivity.Assessment) {
	for i, a := range as {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%s): %s\n", a.PetName, a.Species, strings.ToUpper(string(a.SeverityLevel)))
		if len(a.WarningIngredients) > 0 {
			fmt.Fprintf(w, "  warnings: %s\n", strings.Join(a.WarningIngredients, ", "))
		}
		if len(a.SpeciesWarnings) > 0 {
			fmt.Fprintf(w, "  unsafe for %s: %s\n", a.Species, strings.Join(a.SpeciesWarnings, ", "))
		}
		for _, r := range a.Recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
}
