package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

var petsCmd = &cobra.Command{
	Use:   "pets",
	Short: "Manage pet profiles",
}

var petsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a pet profile",
	Example: `  petscan pets add --name Rex --species dog --sensitivity chicken --sensitivity "wheat gluten"
  petscan pets add --name Milo --species cat --breed "Maine Coon"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		f := cmd.Flags()
		name, _ := f.GetString("name")
		species, _ := f.GetString("species")
		breed, _ := f.GetString("breed")
		sens, _ := f.GetStringArray("sensitivity")

		v := common.NewValidator().
			Field("name", name, common.Required, common.MaxLength(100)).
			Field("species", species, common.Required)
		if err := v.Error(); err != nil {
			return err
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		pet := &entity.PetProfile{Name: name, Species: species, Sensitivities: entity.ParseSensitivities(sens)}
		if breed != "" {
			pet.Breed = &breed
		}
		created, err := a.Pets.CreatePet(ctx, pet)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s) %s\n", created.Name, created.Species, created.ID)
		return nil
	},
}

var petsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pet profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		jsonOut, _ := cmd.Flags().GetBool("json")

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		pets, err := a.Pets.ListPets(ctx)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), pets)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		defer tw.Flush()
		fmt.Fprintln(tw, "ID\tNAME\tSPECIES\tSENSITIVITIES")
		for _, p := range pets {
			names := make([]string, 0, len(p.Sensitivities))
			for _, s := range p.Sensitivities {
				names = append(names, s.Name)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Species, strings.Join(names, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(petsCmd)
	petsCmd.AddCommand(petsAddCmd, petsListCmd)

	f := petsAddCmd.Flags()
	f.String("name", "", "pet name")
	f.String("species", "", "dog or cat")
	f.String("breed", "", "breed (optional)")
	f.StringArray("sensitivity", nil, "ingredient the pet reacts to (repeatable)")

	petsListCmd.Flags().Bool("json", false, "print as JSON")
}
